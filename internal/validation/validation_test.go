package validation

import "testing"

func TestValidateUsername(t *testing.T) {
	valid := []string{"bob", "user_100", "ABC_123", "abcdefghijklmnopqrstuvwxyz_01234"}
	for _, username := range valid {
		if err := ValidateUsername(username); err != nil {
			t.Errorf("ValidateUsername(%q) = %v, want nil", username, err)
		}
	}

	invalid := []string{"", "ab", "has space", "has-dash", "has.dot", "юзер", "abcdefghijklmnopqrstuvwxyz_012345"}
	for _, username := range invalid {
		if err := ValidateUsername(username); err == nil {
			t.Errorf("ValidateUsername(%q) = nil, want error", username)
		}
	}
}

func TestValidateDuration(t *testing.T) {
	cases := []struct {
		input   string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{"30", 30, false},
		{"3650", 3650, false},
		{"0", 0, true},
		{"-5", 0, true},
		{"3651", 0, true},
		{"abc", 0, true},
		{"1.5", 0, true},
		{"", 0, true},
	}

	for _, tc := range cases {
		got, err := ValidateDuration(tc.input)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ValidateDuration(%q) = %d, want error", tc.input, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ValidateDuration(%q): %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ValidateDuration(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}
