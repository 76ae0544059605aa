package quality

import "testing"

func TestProductKeyword(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{"underscore separated", "CONCERT_II_100-1347_PRIMARY_LABEL_546508.pdf", "concert"},
		{"no separator", "ALPHA.pdf", "alpha"},
		{"leading underscore", "_ALPHA.pdf", ""},
		{"nested path", "PDFs/Bravo_Label.pdf", "bravo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ProductKeyword(tt.filename); got != tt.want {
				t.Errorf("ProductKeyword(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestRegistrationPrefix(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"100-1347-1671", "100-1347"},
		{"100-1-9", "100-1"},
		{"100-1347", "100-1347"},
		{" 524-475 ", "524-475"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := RegistrationPrefix(tt.id); got != tt.want {
			t.Errorf("RegistrationPrefix(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestContainsRegistration(t *testing.T) {
	tests := []struct {
		name string
		text string
		id   string
		want bool
	}{
		{"dashed in text", "EPA Reg. No. 100-1347", "100-1347-1671", true},
		{"spaced in text", "EPA Reg No 100 - 1347", "100-1347-1671", true},
		{"absent", "EPA Reg No 200-1", "100-1347-1671", false},
		{"blank identifier", "anything", "  ", false},
		{"separator only", "anything", "--", false},
		{"nan identifier", "Maintenance and financial guidance", "nan", false},
		{"no digits", "see label n/a", "N/A", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContainsRegistration(tt.text, tt.id); got != tt.want {
				t.Errorf("ContainsRegistration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestContainsProductName(t *testing.T) {
	if !ContainsProductName("Con cert II Herbicide", "concert") {
		t.Error("expected keyword to match across spaces")
	}
	if ContainsProductName("anything at all", "") {
		t.Error("empty keyword must not match")
	}
}

func TestContainsBoilerplate(t *testing.T) {
	s := NewScanner()

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"run together", "KEEPOUTOFREACHOFCHILDREN", true},
		{"spaced", "Keep Out of Reach of Children", true},
		{"line broken", "KEEP OUT OF REACH OF CHIL\nDREN", true},
		{"misspelled", "keep out of reach of childern", true},
		{"single ocr error", "KEEP OUT OF REACH OF CH1LDREN", true},
		{"unrelated word", "WAREHOUSE", false},
		{"too short", "child", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.ContainsBoilerplate(tt.text); got != tt.want {
				t.Errorf("ContainsBoilerplate(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestScan(t *testing.T) {
	s := NewScanner()
	text := "ALPHA Insecticide\nEPA Reg. No. 100-1\nKEEP OUT OF REACH OF CHILDREN"

	got := s.Scan(text, "ALPHA_PRIMARY_LABEL.pdf", "100-1-9")
	if !got.ProductName || !got.RegistrationNumber || !got.Boilerplate {
		t.Errorf("Scan() = %+v, want all signals true", got)
	}
	if !got.Attributed() {
		t.Error("Attributed() = false, want true")
	}
}

func TestScanWithoutRegistration(t *testing.T) {
	s := NewScanner()
	text := "Maintenance and financial guidance for homeowners"

	for _, id := range []string{"", "nan", "NaN"} {
		got := s.Scan(text, "ZETA_Label.pdf", id)
		if got.RegistrationNumber {
			t.Errorf("Scan(%q).RegistrationNumber = true, want false", id)
		}
	}
}
