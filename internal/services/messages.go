package services

import (
	"fmt"
	"strings"

	"github.com/Ananth-NQI/narasumber-backend/internal/models"
)

// Chat replies (Bahasa Indonesia, WhatsApp markdown)
const (
	msgGenericFailure = "⚠️ *Terjadi kesalahan saat memproses pesan Anda.*"
	msgGroupOnly      = "❌ *Perintah ini hanya dapat dijalankan di dalam grup.*"
	msgNoPermission   = "🚫 *Anda tidak memiliki izin untuk menggunakan perintah ini!*"
	msgWrongGroup     = "🚫 *Anda hanya dapat mengelola grup Anda sendiri.*"
	msgNotInSystem    = "⚠️ Nomor Anda tidak terdaftar dalam sistem."
	msgNotRegistered  = "⚠️ *Nomor Anda belum terdaftar dalam sistem. Harap hubungi admin.*"
	msgNoRespondents  = "⚠️ *Belum ada narasumber yang terdaftar di grup ini.*"
	msgVerified       = "✅ Nomor Anda telah diverifikasi!"

	msgUsageForward    = "⚠️ *Format salah! Gunakan:*\n\n*!forward @user [pertanyaan]*"
	msgUsageSetRole    = "⚠️ *Format salah! Gunakan: !setNarasumber @nomor*"
	msgUsageRemoveRole = "⚠️ *Format salah! Gunakan: !hapusNarasumber @nomor*"
	msgUsageSession    = "⚠️ *Format salah!*\nGunakan: *!setSession [aktif/nonaktif] [durasi (opsional)]*\nContoh:\n!setSession aktif 10"
	msgUsageQuestion   = "⚠️ *Format salah!*\nGunakan:\n*!question [pertanyaan]*\n\nContoh:\n!question Apa jadwal pengiriman hari ini?"
	msgSessionInactive = "⚠️ *Sesi tanya jawab belum aktif. Gunakan `!setSession aktif [durasi]` untuk mengaktifkan.*"

	msgSessionDisabled  = "✅ Sesi tanya jawab telah dinonaktifkan."
	msgRespondentsSet   = "✅ *Narasumber berhasil ditambahkan ke grup ini!*"
	msgRespondentsGone  = "✅ *Narasumber berhasil dihapus dari grup ini!*"
	msgProcessing       = "🔄 *Pertanyaan Anda sedang diproses dan akan diteruskan ke narasumber.*"
	msgQuestionAccept   = "✅ *Pertanyaan Anda diterima dan sedang diproses.*"
	msgSentToAll        = "✅ *Pertanyaan telah dikirim ke semua narasumber di grup ini.*"
	msgInvalidChoice    = "⚠️ *Pilihan narasumber tidak valid.*"
	msgSelectionExpired = "⌛ *Waktu memilih narasumber telah habis. Silakan kirim ulang pertanyaan dengan !question.*"

	continueWord = "lanjut"
)

func msgUserNotFound(phone string) string {
	return fmt.Sprintf("❌ *User dengan nomor %s tidak ditemukan di database.*", phone)
}

func msgForwarded(phone string) string {
	return fmt.Sprintf("✅ *Pertanyaan dari %s telah dikirim ke narasumber!*", phone)
}

func msgSessionEnabled(minutes int) string {
	return fmt.Sprintf("✅ Sesi tanya jawab telah diaktifkan selama %d menit.", minutes)
}

func msgLinkCreated(link, expiry string) string {
	return fmt.Sprintf("✅ *Link pendaftaran berhasil dibuat!*\n\n📝 *Gunakan link berikut untuk mendaftar:*\n%s\n\n🔹 Link berlaku hingga: %s", link, expiry)
}

func msgSimilarFound(count int64, link string) string {
	return fmt.Sprintf("📌 *Ditemukan %d pertanyaan serupa!*\n🔗 *Lihat daftar pertanyaan serupa:*\n%s\n\nKetik *%s* untuk mengajukan pertanyaan ke narasumber.", count, link, continueWord)
}

func msgNewQuestion(askerPhone, question string) string {
	return fmt.Sprintf("❓ *Pertanyaan baru dari +%s:*\n\n%s", askerPhone, question)
}

func msgUnknownNumbers(phones []string) string {
	return fmt.Sprintf("⚠️ Nomor berikut tidak ditemukan atau bukan anggota grup ini: %s", strings.Join(phones, ", "))
}

func msgRespondentMenu(candidates []models.Candidate) string {
	var b strings.Builder
	b.WriteString("👤 *Pilih Narasumber:*\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.DisplayName)
	}
	b.WriteString("0. Kirim ke semua narasumber\n")
	b.WriteString("\nKetik *nomor narasumber* atau *0* untuk mengirim ke semua.")
	return b.String()
}
