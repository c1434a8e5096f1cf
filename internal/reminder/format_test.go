package reminder

import (
	"strings"
	"testing"
)

func TestFormatMessageTotalOverCategories(t *testing.T) {
	t.Parallel()
	rec := Record{"expired_status": StatusToday}
	for _, cat := range DispatchOrder {
		msg, err := FormatMessage(cat, rec)
		if err != nil {
			t.Fatalf("FormatMessage(%s) error: %v", cat, err)
		}
		if msg == "" {
			t.Fatalf("FormatMessage(%s) returned empty message", cat)
		}
		wantHeader := "🔔 *REMINDER " + strings.ToUpper(cat.Key()) + "*"
		if !strings.HasPrefix(msg, wantHeader) {
			t.Fatalf("FormatMessage(%s) header = %q, want prefix %q", cat, msg, wantHeader)
		}
		if !strings.HasSuffix(msg, "_Terima kasih._") {
			t.Fatalf("FormatMessage(%s) missing footer: %q", cat, msg)
		}
	}
}

func TestFormatMessageFields(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		cat     Category
		rec     Record
		include []string
	}{
		{
			name: "motor",
			cat:  Motor,
			rec:  Record{"nama_motor": "Vario", "plat_nomor": "B 1234 XY", "expired_status": StatusSoon},
			include: []string{
				"Motor: *Vario*", "Plat: *B 1234 XY*",
				"Status: *akan jatuh tempo dalam waktu dekat*",
			},
		},
		{
			name: "bts",
			cat:  BTS,
			rec:  Record{"nama_bts": "BTS-01", "nama_user": "Andi", "expired_status": StatusPassed},
			include: []string{
				"Nama BTS: *BTS-01*", "Pemilik: *Andi*",
				"Status: *sudah lewat jatuh tempo*",
			},
		},
		{
			name: "domain",
			cat:  Domain,
			rec:  Record{"nama_domain": "contoh.id", "nama_perusahaan": "PT Contoh", "expired_status": StatusToday},
			include: []string{
				"Domain: *contoh.id*", "Perusahaan: *PT Contoh*",
				"Status: *jatuh tempo hari ini*",
			},
		},
		{
			name:    "payment type",
			cat:     PaymentType,
			rec:     Record{"jenis_pembayaran": "Internet", "expired_status": StatusToday},
			include: []string{"Jenis: *Internet*", "Status: *jatuh tempo hari ini*"},
		},
		{
			name: "generic",
			cat:  Generic,
			rec:  Record{"tentang_reminder": "Pajak", "keterangan": "STNK", "tanggal_reminder": "2025-01-02"},
			include: []string{
				"Nama: *Pajak*", "Keterangan: *STNK*", "Tanggal: *2025-01-02*",
				"Status: *perlu perhatian*",
			},
		},
		{
			name:    "missing fields render empty",
			cat:     Motor,
			rec:     Record{},
			include: []string{"Motor: **", "Plat: **", "Status: *perlu perhatian*"},
		},
		{
			name:    "unknown status falls back",
			cat:     Domain,
			rec:     Record{"expired_status": "whatever"},
			include: []string{"Status: *perlu perhatian*"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			msg, err := FormatMessage(tt.cat, tt.rec)
			if err != nil {
				t.Fatalf("FormatMessage error: %v", err)
			}
			for _, want := range tt.include {
				if !strings.Contains(msg, want) {
					t.Fatalf("message %q missing %q", msg, want)
				}
			}
		})
	}
}

func TestFormatMessageUnknownCategory(t *testing.T) {
	t.Parallel()
	if _, err := FormatMessage(Category(99), Record{}); err == nil {
		t.Fatal("expected error for out-of-range category")
	}
}
