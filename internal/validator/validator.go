package validator

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"auction/internal/models"
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidTitle       = errors.New("invalid title")
	ErrInvalidDescription = errors.New("description too long")
	ErrInvalidCondition   = errors.New("invalid condition")
	ErrInvalidMedia       = errors.New("invalid media reference")
)

const (
	maxTitleLength       = 120
	maxDescriptionLength = 5000
	maxMediaPerProduct   = 20
)

var (
	emailRegex    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,30}$`)
)

func ValidateEmail(email string) error {
	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}
	return nil
}

func ValidateUsername(username string) error {
	if !usernameRegex.MatchString(username) {
		return ErrInvalidUsername
	}
	return nil
}

func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrInvalidPassword
	}
	return nil
}

// ValidateTitle checks a product title after trimming surrounding space.
func ValidateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || utf8.RuneCountInString(trimmed) > maxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}

func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > maxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}

func ValidateCondition(condition string) error {
	switch condition {
	case models.ConditionNew, models.ConditionUsed:
		return nil
	}
	return ErrInvalidCondition
}

// ValidateMedia accepts absolute http(s) URLs or relative upload paths.
func ValidateMedia(refs []string) error {
	if len(refs) > maxMediaPerProduct {
		return ErrInvalidMedia
	}
	for _, ref := range refs {
		if err := validateMediaRef(ref); err != nil {
			return err
		}
	}
	return nil
}

func validateMediaRef(ref string) error {
	if strings.TrimSpace(ref) == "" || strings.ContainsAny(ref, " \t\n") {
		return ErrInvalidMedia
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ErrInvalidMedia
	}
	switch parsed.Scheme {
	case "http", "https":
		if parsed.Host == "" {
			return ErrInvalidMedia
		}
	case "":
		if strings.Contains(parsed.Path, "..") {
			return ErrInvalidMedia
		}
	default:
		return ErrInvalidMedia
	}
	return nil
}
