// Package auth exchanges credentials for v4 bearer tokens and carries
// them in a signed cookie together with the derived accounting id.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goteo/org.goteo.www-sub000/internal/action"
	"github.com/goteo/org.goteo.www-sub000/internal/v4"
)

// API is the slice of the v4 client the auth actions consume.
type API interface {
	CreateUserToken(ctx context.Context, identifier, password string) (*v4.UserToken, error)
	DeleteUserToken(ctx context.Context, id int64, bearer string) error
	GetUser(ctx context.Context, id string, bearer string) (*v4.User, error)
	CreateUser(ctx context.Context, user map[string]any) (*v4.User, error)
	PatchPerson(ctx context.Context, id string, fields map[string]any, bearer string) error
	PatchOrganization(ctx context.Context, id string, fields map[string]any, bearer string) error
}

const (
	AccountTypeIndividual   = "individual"
	AccountTypeOrganization = "organization"
)

type Service struct {
	api API
	log zerolog.Logger
}

func NewService(api API, log zerolog.Logger) *Service {
	return &Service{api: api, log: log}
}

// Login exchanges identifier/password for a bearer token and resolves the
// owner's accounting id. Any unusable response maps to invalid
// credentials; detail goes to the logs only.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	token, err := s.api.CreateUserToken(ctx, identifier, password)
	if err != nil {
		s.log.Info().Err(err).Str("identifier", identifier).Msg("token creation refused")
		return nil, action.Unauthorized("auth.invalidCredentials")
	}
	if token.Token == "" || token.Owner == "" {
		return nil, action.Unauthorized("auth.invalidCredentials")
	}

	user, err := s.api.GetUser(ctx, v4.IRIID(token.Owner), token.Token)
	if err != nil {
		s.log.Info().Err(err).Str("owner", token.Owner).Msg("token owner lookup failed")
		return nil, action.Unauthorized("auth.invalidCredentials")
	}
	if user.Accounting == "" {
		return nil, action.Unauthorized("auth.invalidCredentials")
	}

	return &Session{
		UserID:       user.ID,
		Token:        token.Token,
		TokenID:      token.ID,
		AccountingID: v4.IRIID(user.Accounting),
		IssuedAt:     time.Now(),
	}, nil
}

// RegisterForm is the sign-up input; required fields depend on the
// account type.
type RegisterForm struct {
	Type      string `json:"type"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	LegalName string `json:"legalName,omitempty"`
	TaxID     string `json:"taxId,omitempty"`
}

func (f *RegisterForm) validate() *action.Error {
	if f.Type == "" {
		f.Type = AccountTypeIndividual
	}
	required := map[string]string{
		"email":    f.Email,
		"password": f.Password,
	}
	switch f.Type {
	case AccountTypeIndividual:
		required["firstName"] = f.FirstName
		required["lastName"] = f.LastName
	case AccountTypeOrganization:
		required["legalName"] = f.LegalName
		required["taxId"] = f.TaxID
	default:
		return action.Invalid("validation.invalidBody")
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return action.Invalid("validation.required", field)
		}
	}
	return nil
}

// Register creates the user, authenticates with the fresh credentials and
// patches the person/organization sub-resource. A mid-sequence failure
// collapses to a generic error; the partially created account is not
// rolled back, matching the remote API's behavior.
func (s *Service) Register(ctx context.Context, form RegisterForm) (*Session, error) {
	if err := form.validate(); err != nil {
		return nil, err
	}

	user, err := s.api.CreateUser(ctx, map[string]any{
		"email":    form.Email,
		"password": form.Password,
		"type":     form.Type,
	})
	if err != nil {
		return nil, action.Upstream("auth.registrationFailed", err)
	}

	sess, err := s.Login(ctx, form.Email, form.Password)
	if err != nil {
		return nil, action.Upstream("auth.registrationFailed", err)
	}

	switch form.Type {
	case AccountTypeIndividual:
		err = s.api.PatchPerson(ctx, v4.IRIID(user.Person), map[string]any{
			"firstName": form.FirstName,
			"lastName":  form.LastName,
		}, sess.Token)
	case AccountTypeOrganization:
		err = s.api.PatchOrganization(ctx, v4.IRIID(user.Organization), map[string]any{
			"legalName": form.LegalName,
			"taxId":     form.TaxID,
		}, sess.Token)
	}
	if err != nil {
		return nil, action.Upstream("auth.registrationFailed", err)
	}

	return sess, nil
}

// Logout deletes the remote token. Failures are logged only: the handler
// drops the cookie regardless of the remote outcome.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil {
		return action.Unauthorized("auth.unauthorized")
	}
	if err := s.api.DeleteUserToken(ctx, sess.TokenID, sess.Token); err != nil {
		s.log.Warn().Err(err).Int64("token_id", sess.TokenID).Msg("remote token deletion failed")
	}
	return nil
}
