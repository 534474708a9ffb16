package handlers

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/yungbote/coursemart-backend/internal/http/response"
	"github.com/yungbote/coursemart-backend/internal/platform/apierr"
)

var (
	descriptionPattern = regexp.MustCompile(`^[a-zA-Z0-9\s.,!?'"-]{0,150}$`)
	usernamePattern    = regexp.MustCompile(`^[a-z0-9_.]{3,30}$`)
	personNamePattern  = regexp.MustCompile(`^[a-zA-Z\s]{1,60}$`)
)

func patternRule(re *regexp.Regexp) validator.Func {
	return func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	}
}

// RegisterValidators adds the description, username and personname tags to
// gin's binding validator.
func RegisterValidators() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding validator is not go-playground/validator")
	}
	rules := map[string]*regexp.Regexp{
		"description": descriptionPattern,
		"username":    usernamePattern,
		"personname":  personNamePattern,
	}
	for tag, re := range rules {
		if err := v.RegisterValidation(tag, patternRule(re)); err != nil {
			return fmt.Errorf("register %s: %w", tag, err)
		}
	}
	return nil
}

var tagMessages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email",
	"url":         "must be an absolute URL",
	"description": "may only contain letters, numbers, spaces and . , ! ? ' \" - (max 150 characters)",
	"username":    "must be 3-30 lowercase letters, numbers, '_' or '.'",
	"personname":  "may only contain letters and spaces (max 60 characters)",
	"oneof":       "has an unsupported value",
	"min":         "is too short or too small",
	"max":         "is too long or too large",
	"gte":         "is too small",
	"lte":         "is too large",
}

// bind decodes the JSON body into req and writes a 400 on failure.
func bind(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.RespondAPIError(c, apierr.Invalid(bindMessage(err)))
		return false
	}
	return true
}

func bindMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Invalid request body."
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg, ok := tagMessages[fe.Tag()]
		if !ok {
			msg = "is invalid"
		}
		parts = append(parts, fmt.Sprintf("%s %s", strings.ToLower(fe.Field()), msg))
	}
	return strings.Join(parts, "; ") + "."
}
