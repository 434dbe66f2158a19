package dtmf

import "testing"

func TestLanguageSelector(t *testing.T) {
	c := NewCollector("1")
	c.SetMode(ModeLanguage)

	res := c.Press("1")
	if res.Status != StatusComplete {
		t.Fatalf("status = %q, want %q", res.Status, StatusComplete)
	}
	if res.Message != "Language switched to Spanish." {
		t.Fatalf("message = %q", res.Message)
	}
	if !c.IsComplete() {
		t.Fatalf("collector should report complete")
	}
}

func TestLanguageSelectorRejectsOtherDigits(t *testing.T) {
	c := NewCollector("1")
	c.SetMode(ModeLanguage)

	res := c.Press("7")
	if res.Status != StatusInvalid {
		t.Fatalf("status = %q, want %q", res.Status, StatusInvalid)
	}
	if res.Message != "Invalid input for language selection." {
		t.Fatalf("message = %q", res.Message)
	}
	if !res.Terminal() {
		t.Fatalf("invalid selection should be terminal")
	}
}

func TestPhoneNumberCompletesAtTenDigits(t *testing.T) {
	c := NewCollector("")
	c.SetMode(ModePhoneNumber)

	digits := "5551234567"
	for i := 0; i < len(digits)-1; i++ {
		res := c.Press(string(digits[i]))
		if res.Status != StatusCollecting {
			t.Fatalf("digit %d: status = %q, want %q", i+1, res.Status, StatusCollecting)
		}
		if res.Message != "Collecting phone number..." {
			t.Fatalf("digit %d: message = %q", i+1, res.Message)
		}
	}

	res := c.Press(string(digits[len(digits)-1]))
	if res.Status != StatusComplete {
		t.Fatalf("final digit: status = %q, want %q", res.Status, StatusComplete)
	}
	if res.Digits != digits {
		t.Fatalf("digits = %q, want %q", res.Digits, digits)
	}
	if res.Message != "Phone number received: 5551234567." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestDateOfBirthStaysNonTerminalUnderEightDigits(t *testing.T) {
	c := NewCollector("")
	c.SetMode(ModeDateOfBirth)

	for i, d := range []string{"1", "9", "8", "5", "0", "4", "1"} {
		res := c.Press(d)
		if res.Terminal() {
			t.Fatalf("digit %d should not be terminal, got %q", i+1, res.Status)
		}
		if res.Message != "Collecting date of birth..." {
			t.Fatalf("digit %d: message = %q", i+1, res.Message)
		}
	}

	res := c.Press("2")
	if res.Status != StatusComplete {
		t.Fatalf("status = %q, want %q", res.Status, StatusComplete)
	}
	if res.Message != "Date of birth received: 19850412." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestDigitWithNoActiveCollection(t *testing.T) {
	c := NewCollector("")

	res := c.Press("5")
	if res.Status != StatusUnknown {
		t.Fatalf("status = %q, want %q", res.Status, StatusUnknown)
	}
	if res.Message != "Unknown state." {
		t.Fatalf("message = %q", res.Message)
	}
}

func TestSetModeClearsBuffer(t *testing.T) {
	c := NewCollector("")
	c.SetMode(ModePhoneNumber)
	c.Press("5")
	c.Press("5")

	c.SetMode(ModeDateOfBirth)
	for i := 0; i < 7; i++ {
		if res := c.Press("1"); res.Status != StatusCollecting {
			t.Fatalf("digit %d: status = %q", i+1, res.Status)
		}
	}
	res := c.Press("1")
	if res.Status != StatusComplete {
		t.Fatalf("old digits leaked into new cycle: %q", res.Status)
	}
	if res.Digits != "11111111" {
		t.Fatalf("digits = %q", res.Digits)
	}
}

func TestResetReturnsToIdle(t *testing.T) {
	c := NewCollector("")
	c.SetMode(ModePhoneNumber)
	c.Press("5")

	c.Reset()
	if c.Mode() != ModeIdle {
		t.Fatalf("mode = %q, want %q", c.Mode(), ModeIdle)
	}
	if res := c.Press("5"); res.Status != StatusUnknown {
		t.Fatalf("status after reset = %q", res.Status)
	}
}
