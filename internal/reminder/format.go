package reminder

import (
	"fmt"
	"strings"
)

// FormatMessage renders the outgoing reminder text for one record.
//
// Total over the closed category set; every expired_status value (including
// unrecognized ones) yields a non-empty message. Missing record fields
// render as empty, never as an error. An out-of-range category returns an
// error: that is a broken caller, not bad data.
func FormatMessage(c Category, rec Record) (string, error) {
	body, err := bodyFor(c, rec)
	if err != nil {
		return "", err
	}

	header := fmt.Sprintf("🔔 *REMINDER %s*", strings.ToUpper(c.Key()))
	footer := "\nMohon segera ditindaklanjuti.\n_Terima kasih._"
	return header + "\n\n" + body + footer, nil
}

func bodyFor(c Category, rec Record) (string, error) {
	status := statusText(rec.ExpiredStatus())
	switch c {
	case Motor:
		return fmt.Sprintf("Motor: *%s*\nPlat: *%s*\nStatus: *%s*",
			rec.Str("nama_motor"), rec.Str("plat_nomor"), status), nil
	case BTS:
		return fmt.Sprintf("Nama BTS: *%s*\nPemilik: *%s*\nStatus: *%s*",
			rec.Str("nama_bts"), rec.Str("nama_user"), status), nil
	case Domain:
		return fmt.Sprintf("Domain: *%s*\nPerusahaan: *%s*\nStatus: *%s*",
			rec.Str("nama_domain"), rec.Str("nama_perusahaan"), status), nil
	case PaymentType:
		return fmt.Sprintf("Jenis: *%s*\nStatus: *%s*",
			rec.Str("jenis_pembayaran"), status), nil
	case Generic:
		return fmt.Sprintf("Nama: *%s*\nKeterangan: *%s*\nTanggal: *%s*\nStatus: *%s*",
			rec.Str("tentang_reminder"), rec.Str("keterangan"), rec.Str("tanggal_reminder"), status), nil
	}
	return "", &unknownCategoryError{c: c}
}

// statusText maps the shared expired_status enum onto the human phrasing.
// Unknown values fall back to the generic "needs attention" line.
func statusText(expired string) string {
	switch expired {
	case StatusSoon:
		return "akan jatuh tempo dalam waktu dekat"
	case StatusToday:
		return "jatuh tempo hari ini"
	case StatusPassed:
		return "sudah lewat jatuh tempo"
	default:
		return "perlu perhatian"
	}
}
