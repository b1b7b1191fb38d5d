package user

import (
	"testing"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

func Test_checkPassword(t *testing.T) {
	LoadCommonPasswords(nopLogger{})

	tests := []struct {
		name  string
		pwd   string
		attrs []string
		want  string
	}{
		{name: "too short", pwd: "Ab1!", want: pwdMinLenText},
		{name: "whitespace", pwd: "Abcd 1234!", want: pwdNoSpaceText},
		{name: "all numeric", pwd: "1234567890", want: pwdNotAllNumText},
		{name: "no special", pwd: "Abcd12345", want: pwdComplexityText},
		{name: "no upper", pwd: "abcd1234!", want: pwdComplexityText},
		{name: "similar to name", pwd: "Amadeus1756!", attrs: []string{"Amadeus", "Mozart", "amadeus1756@mozart.at"}, want: pwdAttrSimText},
		{name: "common", pwd: "P@ssw0rd", want: pwdNoCommonText},
		{name: "common (case insensitive)", pwd: "qWERTY123!", want: pwdNoCommonText},
		{name: "good", pwd: "Sinfonía-40-Sol!", attrs: []string{"Wolfgang", "Mozart", "w@mozart.at"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkPassword(tt.pwd, tt.attrs...); got != tt.want {
				t.Errorf("checkPassword() = %q, want %q", got, tt.want)
			}
		})
	}
}
