package reminder

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{name: "trunk prefix replaced", raw: "0812-3456-7890", want: "6281234567890@c.us", ok: true},
		{name: "already country code", raw: "6281234567890", want: "6281234567890@c.us", ok: true},
		{name: "plus and spaces stripped", raw: "+62 812 3456 7890", want: "6281234567890@c.us", ok: true},
		{name: "no double country prefix", raw: "062812", want: "6262812@c.us", ok: true},
		{name: "letters stripped", raw: "hp: 0812abc333", want: "62812333@c.us", ok: true},
		{name: "empty", raw: "", ok: false},
		{name: "no digits", raw: "n/a", ok: false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := NormalizePhone(tt.raw)
			if ok != tt.ok {
				t.Fatalf("NormalizePhone(%q) ok = %v, want %v", tt.raw, ok, tt.ok)
			}
			if got != tt.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestPhoneAccessorPerCategory(t *testing.T) {
	t.Parallel()
	rec := Record{
		"karyawan": map[string]any{"no_hp": "0811"},
		"telepon":  "0822",
	}
	if got := rec.Phone(Motor); got != "0811" {
		t.Fatalf("Motor phone = %q", got)
	}
	if got := rec.Phone(BTS); got != "0822" {
		t.Fatalf("BTS phone = %q", got)
	}
	if got := rec.Phone(Domain); got != "0822" {
		t.Fatalf("Domain phone = %q", got)
	}

	// PaymentType and Generic read a nested object at the same key; a plain
	// string there must yield "" (skip), not a panic.
	if got := rec.Phone(PaymentType); got != "" {
		t.Fatalf("PaymentType phone on flat telepon = %q, want empty", got)
	}

	nested := Record{"telepon": map[string]any{"nomor_telepon": "0833"}}
	if got := nested.Phone(Generic); got != "0833" {
		t.Fatalf("Generic nested phone = %q", got)
	}
}
