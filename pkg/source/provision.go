package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
	admin "google.golang.org/api/admin/reports/v1"
	"google.golang.org/api/option"
)

// SetupInstructions describes the one-time console setup a service account
// needs before the exporter can read audit logs.
const SetupInstructions = `Complete the following setup before running the exporter:
  1. Create or select a Google Cloud project.
  2. Enable the Admin SDK API for that project.
  3. Create a service account and download its key as the credentials file.
  4. In the Workspace admin console, grant the service account's client ID
     domain-wide delegation for the scope:
       ` + admin.AdminReportsAuditReadonlyScope

// ErrMissingCredentials is returned when the service-account key file does not exist.
var ErrMissingCredentials = errors.New("service account credentials file not found")

// ErrMissingAdminEmail is returned when no admin address to impersonate is configured.
var ErrMissingAdminEmail = errors.New("admin email to impersonate is not configured")

// SetupError reports that a working LogSource could not be produced.
// It is fatal: no day is selected when provisioning fails.
type SetupError struct {
	Step string
	Err  error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup failed (%s): %v", e.Step, e.Err)
}

func (e *SetupError) Unwrap() error {
	return e.Err
}

// Credentials locates the material needed to build a ReportsSource.
type Credentials struct {
	// KeyFile is the service-account JSON key path.
	KeyFile string

	// AdminEmail is the super admin to impersonate. Takes precedence over AdminEmailFile.
	AdminEmail string

	// AdminEmailFile holds the admin address when AdminEmail is empty.
	AdminEmailFile string

	// PageSize is passed to WithPageSize.
	PageSize int

	// ClientOptions are appended to the Reports client options.
	ClientOptions []option.ClientOption
}

// Provision builds a ReportsSource authenticated with domain-wide delegation
// and verifies it with a one-record query. All failures are *SetupError.
func Provision(ctx context.Context, creds Credentials) (*ReportsSource, error) {
	key, err := os.ReadFile(creds.KeyFile) // #nosec G304 -- configured credentials path is expected
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, &SetupError{
				Step: "credentials",
				Err:  fmt.Errorf("%w: %s\n%s", ErrMissingCredentials, creds.KeyFile, SetupInstructions),
			}
		}
		return nil, &SetupError{Step: "credentials", Err: fmt.Errorf("reading %s: %w", creds.KeyFile, err)}
	}

	email, err := ResolveAdminEmail(creds)
	if err != nil {
		return nil, &SetupError{Step: "admin email", Err: err}
	}

	jwtCfg, err := google.JWTConfigFromJSON(key, admin.AdminReportsAuditReadonlyScope)
	if err != nil {
		return nil, &SetupError{Step: "credentials", Err: fmt.Errorf("parsing %s: %w", creds.KeyFile, err)}
	}
	jwtCfg.Subject = email

	opts := append([]option.ClientOption{option.WithTokenSource(jwtCfg.TokenSource(ctx))}, creds.ClientOptions...)
	svc, err := admin.NewService(ctx, opts...)
	if err != nil {
		return nil, &SetupError{Step: "client", Err: err}
	}

	src := NewReportsSource(svc, WithPageSize(creds.PageSize))
	if err := src.Verify(ctx, time.Now()); err != nil {
		return nil, &SetupError{Step: "verify", Err: err}
	}
	return src, nil
}

// ResolveAdminEmail returns the configured admin address, reading the admin
// email file when no address is set directly.
func ResolveAdminEmail(creds Credentials) (string, error) {
	if email := strings.TrimSpace(creds.AdminEmail); email != "" {
		return email, nil
	}
	if creds.AdminEmailFile == "" {
		return "", ErrMissingAdminEmail
	}
	data, err := os.ReadFile(creds.AdminEmailFile) // #nosec G304 -- configured path is expected
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: set admin_email or create %s", ErrMissingAdminEmail, creds.AdminEmailFile)
		}
		return "", fmt.Errorf("reading %s: %w", creds.AdminEmailFile, err)
	}
	email := strings.TrimSpace(string(data))
	if email == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrMissingAdminEmail, creds.AdminEmailFile)
	}
	return email, nil
}

// Verify issues a single-record login query over the day before now to
// confirm credentials and delegation work.
func (s *ReportsSource) Verify(ctx context.Context, now time.Time) error {
	window := DayWindow(now.UTC().AddDate(0, 0, -1))
	_, err := s.svc.Activities.List(s.userKey, "login").
		StartTime(window.Start.Format(time.RFC3339)).
		EndTime(window.End.Format(time.RFC3339)).
		MaxResults(1).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("test query failed, check credentials and delegation: %w", err)
	}
	return nil
}
