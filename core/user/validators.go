package user

import (
	"bufio"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/trezcool/tdm/core"
	appfs "github.com/trezcool/tdm/fs"
)

var (
	// password policy
	pwdMinLen     = 8
	pwdMinLenText = fmt.Sprintf("La contraseña debe tener al menos %d caracteres", pwdMinLen)

	pwdNoSpaceText = "La contraseña no debe contener espacios"

	pwdNotAllNumText = "La contraseña no puede ser completamente numérica"

	pwdComplexityText = "La contraseña debe contener al menos una mayúscula, una minúscula, un dígito y un carácter especial"
	specialRegex      = regexp.MustCompile("[^A-Za-z0-9]")

	pwdMaxSim      = .7
	pwdAttrSimText = "La contraseña es demasiado similar a tus datos personales"

	pwdNoCommonText = "La contraseña es demasiado común"
	commonPasswords []string
	commonPwdMu     sync.RWMutex

	pwdMismatchText = "Las contraseñas no coinciden"
	emailExistsText = "El correo electrónico ya existe"
)

// LoadCommonPasswords loads the embedded list of passwords too common to be accepted.
func LoadCommonPasswords(logger core.Logger) {
	file, err := appfs.FS.Open("common-passwords.txt")
	if err != nil {
		logger.Error(fmt.Sprintf("user.LoadCommonPasswords: %v", err), err)
		return
	}
	defer func() { _ = file.Close() }()

	pwds := make([]string, 0, 128)
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if pwd := strings.TrimSpace(scanner.Text()); pwd != "" {
			pwds = append(pwds, strings.ToLower(pwd))
		}
	}
	if err = scanner.Err(); err != nil {
		logger.Error(fmt.Sprintf("user.LoadCommonPasswords: %v", err), err)
	}
	sort.Strings(pwds)

	commonPwdMu.Lock()
	commonPasswords = pwds
	commonPwdMu.Unlock()
}

func isCommonPassword(pwd string) bool {
	commonPwdMu.RLock()
	defer commonPwdMu.RUnlock()
	lpwd := strings.ToLower(pwd)
	idx := sort.SearchStrings(commonPasswords, lpwd)
	return idx < len(commonPasswords) && commonPasswords[idx] == lpwd
}

// checkPassword applies the password policy to pwd and returns the first violation:
// - minLen: 8
// - no whitespace
// - no all numeric
// - complexity: 1 upper, 1 lower, 1 digit, 1 special
// - no user attrs similarity
// - no common password
func checkPassword(pwd string, attrs ...string) string {
	var (
		digitCount         int
		hasUpper, hasLower bool
	)

	runes := []rune(pwd)
	if len(runes) < pwdMinLen {
		return pwdMinLenText
	}
	for _, char := range runes {
		if unicode.IsSpace(char) {
			return pwdNoSpaceText
		}
		if unicode.IsDigit(char) {
			digitCount++
		}
		if !hasUpper && unicode.IsUpper(char) {
			hasUpper = true
		}
		if !hasLower && unicode.IsLower(char) {
			hasLower = true
		}
	}

	if digitCount == len(runes) {
		return pwdNotAllNumText
	}

	if !(hasUpper && hasLower && digitCount > 0 && specialRegex.MatchString(pwd)) {
		return pwdComplexityText
	}

	lpwd := strings.ToLower(pwd)
	for _, attr := range attrs {
		if attr == "" {
			continue
		}
		ratio := difflib.NewMatcher(strings.Split(lpwd, ""), strings.Split(strings.ToLower(attr), "")).QuickRatio()
		if ratio >= pwdMaxSim {
			return pwdAttrSimText
		}
	}

	if isCommonPassword(pwd) {
		return pwdNoCommonText
	}
	return ""
}
