package validators

import "testing"

func TestIsPhone(t *testing.T) {
	valid := []string{"03001234567", "923001234567", "9230012345678"}
	for _, p := range valid {
		if !IsPhone(p) {
			t.Errorf("%q should be valid", p)
		}
	}
	invalid := []string{"", "0300123456", "92300123456789", "0300-1234567", "+923001234567"}
	for _, p := range invalid {
		if IsPhone(p) {
			t.Errorf("%q should be invalid", p)
		}
	}
}

func TestIsEmail(t *testing.T) {
	if !IsEmail("ali@example.com") {
		t.Fatal("plain address rejected")
	}
	for _, e := range []string{"", "ali", "ali@", "Ali <ali@example.com>", "ali@localhost"} {
		if IsEmail(e) {
			t.Errorf("%q should be invalid", e)
		}
	}
}
