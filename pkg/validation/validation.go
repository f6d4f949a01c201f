package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode/utf8"

	"boardchat/internal/core/domain"
	"boardchat/pkg/utils"

	"github.com/go-playground/validator/v10"
)

const (
	MaxIDLength      = 100
	MaxContentLength = 4000
	MaxNameLength    = 80
)

var (
	// IDRegex matches board, channel and user ids.
	IDRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("entityid", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || (len(s) <= MaxIDLength && IDRegex.MatchString(s))
	})
	_ = v.RegisterValidation("runemax", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscanf(fl.Param(), "%d", &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(fl.Field().String()) <= limit
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Struct validates a tagged payload and converts failures into a
// *domain.ValidationError naming the offending fields.
func Struct(payload interface{}) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &domain.ValidationError{Reason: err.Error()}
	}

	fields := make([]string, 0, len(fieldErrs))
	reasons := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields = append(fields, fe.Field())
		reasons = append(reasons, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return &domain.ValidationError{Fields: fields, Reason: strings.Join(reasons, "; ")}
}

// ValidateID validates a board, channel or user id.
func ValidateID(id, fieldName string) error {
	if id == "" {
		return &domain.ValidationError{Fields: []string{fieldName}, Reason: fmt.Sprintf("%s is required", fieldName)}
	}
	if len(id) > MaxIDLength {
		return &domain.ValidationError{Fields: []string{fieldName}, Reason: fmt.Sprintf("%s is too long (max %d characters)", fieldName, MaxIDLength)}
	}
	if !IDRegex.MatchString(id) {
		return &domain.ValidationError{Fields: []string{fieldName}, Reason: fmt.Sprintf("invalid %s format", fieldName)}
	}
	return nil
}

// NormalizeContent trims surrounding whitespace and checks the message body.
func NormalizeContent(content string) (string, error) {
	content = utils.SanitizeString(content)
	if content == "" {
		return "", &domain.ValidationError{Fields: []string{"content"}, Reason: "content is required"}
	}
	if !utf8.ValidString(content) {
		return "", &domain.ValidationError{Fields: []string{"content"}, Reason: "content is not valid UTF-8"}
	}
	if utf8.RuneCountInString(content) > MaxContentLength {
		return "", &domain.ValidationError{Fields: []string{"content"}, Reason: fmt.Sprintf("content is too long (max %d characters)", MaxContentLength)}
	}
	return content, nil
}

// ValidateChannelName validates channel name
func ValidateChannelName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &domain.ValidationError{Fields: []string{"name"}, Reason: "channel name is required"}
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return &domain.ValidationError{Fields: []string{"name"}, Reason: fmt.Sprintf("channel name is too long (max %d characters)", MaxNameLength)}
	}
	return nil
}
