package utils

import "regexp"

var (
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9@]{1,12}$`)
	passwordRegex = regexp.MustCompile(`^[a-zA-Z0-9*@]{1,12}$`)
)

// ValidUsername reports whether the username matches the account format.
func ValidUsername(username string) bool {
	return usernameRegex.MatchString(username)
}

// ValidPassword reports whether the password matches the accepted format.
func ValidPassword(password string) bool {
	return passwordRegex.MatchString(password)
}
