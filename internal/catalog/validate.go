package catalog

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/hamed0406/dlprobe/internal/domain"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()

		// http(s) URL with a host; the prober needs nothing more.
		_ = validate.RegisterValidation("httpurl", func(fl validator.FieldLevel) bool {
			return IsHTTPURL(fl.Field().String())
		})

		validate.RegisterStructValidation(func(sl validator.StructLevel) {
			d := sl.Current().Interface().(domain.Download)
			if !d.Disabled && d.URL == "" {
				sl.ReportError(d.URL, "URL", "url", "required_unless_disabled", "")
			}
		}, domain.Download{})
	})
	return validate
}

// IsHTTPURL reports whether raw is an absolute http or https URL with a host.
func IsHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return (scheme == "http" || scheme == "https") && u.Hostname() != ""
}

// ValidateDownload checks a single entry.
func ValidateDownload(d domain.Download) error {
	return describe(validatorInstance().Struct(d))
}

// Validate checks every entry and reports all problems at once. Duplicate
// URLs are rejected as well.
func Validate(c *Catalog) error {
	var err error
	seen := make(map[string]int, len(c.Downloads))
	for i, d := range c.Downloads {
		if verr := ValidateDownload(d); verr != nil {
			err = multierr.Append(err, fmt.Errorf("download %d (%s): %w", i, d.Name, verr))
		}
		if d.URL == "" {
			continue
		}
		if j, ok := seen[d.URL]; ok {
			err = multierr.Append(err, fmt.Errorf("download %d (%s): url duplicates download %d", i, d.Name, j))
			continue
		}
		seen[d.URL] = i
	}
	return err
}

func describe(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	var out error
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			out = multierr.Append(out, fmt.Errorf("%s is required", strings.ToLower(fe.Field())))
		case "required_unless_disabled":
			out = multierr.Append(out, errors.New("url is required unless the download is disabled"))
		case "httpurl":
			out = multierr.Append(out, fmt.Errorf("url %q must be an absolute http(s) url", fe.Value()))
		case "oneof":
			out = multierr.Append(out, fmt.Errorf("%s must be one of [%s]", strings.ToLower(fe.Field()), fe.Param()))
		default:
			out = multierr.Append(out, fmt.Errorf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
		}
	}
	return out
}
