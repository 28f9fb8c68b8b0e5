package middleware

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apierrors "readyparser/internal/errors"
	"readyparser/internal/lifecycle"
	"readyparser/internal/validation"
	"readyparser/pkg/contracts/domain"
)

// ReportForm holds the submitted report parameters as raw strings.
type ReportForm struct {
	Name                string `form:"name" validate:"omitempty,max=200,filename"`
	StartDate           string `form:"start_date" validate:"required,isodate"`
	EndDate             string `form:"end_date" validate:"required,isodate"`
	IncludeMinorItems   string `form:"include_minor_items" validate:"required,oneof=yes no"`
	BaseDateSelectionOn string `form:"base_date_selection_on" validate:"required,datetarget"`
	FileType            string `form:"file_type" validate:"required,customermode"`
	OutputDateFormat    string `form:"output_date_format" validate:"omitempty,dateformat"`
	GroupBy             string `form:"group_by" validate:"omitempty,grouping"`
}

// ReportValidator checks report forms with validator/v10 and the configured
// date limits.
type ReportValidator struct {
	validator *validator.Validate
	limits    validation.Limits
	logger    *slog.Logger
}

// NewReportValidator creates a validator enforcing limits on the date window.
func NewReportValidator(limits validation.Limits, logger *slog.Logger) *ReportValidator {
	if logger == nil {
		logger = slog.Default()
	}
	rv := &ReportValidator{
		validator: validator.New(),
		limits:    limits,
		logger:    logger.With(slog.String("component", "report_validator")),
	}

	rv.validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// Registration only fails for empty tags or nil funcs.
	_ = rv.validator.RegisterValidation("isodate", isISODate)
	_ = rv.validator.RegisterValidation("datetarget", isDateTarget)
	_ = rv.validator.RegisterValidation("customermode", isCustomerMode)
	_ = rv.validator.RegisterValidation("dateformat", isDateFormat)
	_ = rv.validator.RegisterValidation("grouping", isGrouping)
	_ = rv.validator.RegisterValidation("filename", isValidFilename)
	rv.validator.RegisterStructValidation(rv.dateWindow, ReportForm{})

	return rv
}

// Validate returns nil or a 400 *APIError listing every invalid field.
func (rv *ReportValidator) Validate(form ReportForm) error {
	err := rv.validator.Struct(form)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	details := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	rv.logger.Debug("report form rejected", slog.Int("errors", len(details)))
	return apierrors.NewValidationErrors(details)
}

// Window parses the form's date window. Call it after Validate.
func (rv *ReportValidator) Window(form ReportForm) (validation.DateWindow, error) {
	return rv.limits.ParseWindow(form.StartDate, form.EndDate)
}

// dateWindow checks start <= end and the configured limits once both
// bounds are well-formed. Malformed bounds are left to isodate.
func (rv *ReportValidator) dateWindow(sl validator.StructLevel) {
	form := sl.Current().Interface().(ReportForm)
	if !validation.IsISODate(form.StartDate) || !validation.IsISODate(form.EndDate) {
		return
	}
	if _, err := rv.limits.ParseWindow(form.StartDate, form.EndDate); err != nil {
		reason := err.Error()
		var windowErr *validation.DateWindowError
		if errors.As(err, &windowErr) {
			reason = windowErr.Err.Error()
		}
		sl.ReportError(form.EndDate, "end_date", "EndDate", "datewindow", reason)
	}
}

// ContentTypeValidator rejects bodies whose media type is not one of
// contentTypes with 415.
func ContentTypeValidator(contentTypes ...string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err == nil {
				for _, allowed := range contentTypes {
					if strings.EqualFold(mediaType, allowed) {
						next.ServeHTTP(w, r)
						return
					}
				}
			}

			writeProblem(w, r, http.StatusUnsupportedMediaType, apierrors.TypeUnsupportedFile,
				fmt.Sprintf("Content-Type must be one of: %s", strings.Join(contentTypes, ", ")))
		})
	}
}

func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "isodate":
		return fmt.Sprintf("%s must be a date in YYYY-MM-DD format", field)
	case "datewindow":
		return fmt.Sprintf("start_date and end_date do not form a valid interval: %s", param)
	case "datetarget":
		return fmt.Sprintf("%s must be one of: %s", field, joinNames(domain.DateTargets))
	case "customermode":
		return fmt.Sprintf("%s must be one of: %s", field, joinNames(domain.CustomerModes))
	case "dateformat":
		return fmt.Sprintf("%s must be one of: %s", field, joinNames(lifecycle.DateFormats))
	case "grouping":
		return fmt.Sprintf("%s must be one of: %s", field, joinNames(lifecycle.Groupings))
	case "filename":
		return fmt.Sprintf("%s must be a plain file name", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func joinNames[T ~string](values []T) string {
	names := make([]string, len(values))
	for i, v := range values {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}

// Custom validators

func isISODate(fl validator.FieldLevel) bool {
	return validation.IsISODate(fl.Field().String())
}

func isDateTarget(fl validator.FieldLevel) bool {
	_, err := domain.ParseDateTarget(fl.Field().String())
	return err == nil
}

func isCustomerMode(fl validator.FieldLevel) bool {
	_, err := domain.ParseCustomerMode(fl.Field().String())
	return err == nil
}

func isDateFormat(fl validator.FieldLevel) bool {
	return lifecycle.DateFormat(fl.Field().String()).Valid()
}

func isGrouping(fl validator.FieldLevel) bool {
	switch lifecycle.Grouping(fl.Field().String()) {
	case lifecycle.GroupByProductAndDate, lifecycle.GroupByProduct:
		return true
	}
	return false
}

// isValidFilename rejects names that could escape the staging directory.
func isValidFilename(fl validator.FieldLevel) bool {
	name := fl.Field().String()
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.Contains(name, "..") && len(name) <= 255
}
