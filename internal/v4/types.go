package v4

import "time"

// Money mirrors the v4 API money embeddable: integer minor units plus an
// ISO currency code.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// UserToken is issued by POST /v4/user_tokens and authorizes every other
// call via the Authorization header.
type UserToken struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
	Owner string `json:"owner"` // user IRI
}

type User struct {
	ID           int64  `json:"id"`
	Handle       string `json:"handle"`
	Email        string `json:"email"`
	Type         string `json:"type"` // individual | organization
	Accounting   string `json:"accounting"`
	Person       string `json:"person,omitempty"`
	Organization string `json:"organization,omitempty"`
}

type Person struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	TaxID     string `json:"taxId,omitempty"`
}

type Organization struct {
	ID        int64  `json:"id"`
	LegalName string `json:"legalName"`
	TaxID     string `json:"taxId,omitempty"`
}

type Project struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle,omitempty"`
	Status      string `json:"status"`
	Owner       string `json:"owner"`
	Accounting  string `json:"accounting"`
	Description string `json:"description,omitempty"`
}

type ProjectReward struct {
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Money          Money  `json:"money"`
	Project        string `json:"project"`
	HasUnits       bool   `json:"hasUnits"`
	UnitsAvailable int    `json:"unitsAvailable,omitempty"`
	UnitsTotal     int    `json:"unitsTotal,omitempty"`
}

type Accounting struct {
	ID       int64  `json:"id"`
	Currency string `json:"currency"`
	Owner    string `json:"owner"`
}

type AccountingBalancePoint struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Balance Money     `json:"balance"`
}

type AccountingTransaction struct {
	ID     int64  `json:"id"`
	Money  Money  `json:"money"`
	Origin string `json:"origin"` // accounting IRI
	Target string `json:"target"` // accounting IRI
}

// Gateway describes one available payment processor.
type Gateway struct {
	Name    string   `json:"name"`
	Methods []string `json:"methods,omitempty"`
}

// GatewayCharge is one money movement inside a checkout: the line's
// amount*quantity headed to the target accounting.
type GatewayCharge struct {
	ID          int64  `json:"id,omitempty"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Money       Money  `json:"money"`
	Target      string `json:"target"` // accounting IRI
}

const ChargeTypeSingle = "single"

// Link is a hypermedia link on a checkout; rel "payment" carries the
// gateway redirect URL.
type Link struct {
	Rel  string `json:"rel"`
	Href string `json:"href"`
}

type GatewayCheckout struct {
	ID        int64           `json:"id,omitempty"`
	Gateway   string          `json:"gateway"`
	Origin    string          `json:"origin,omitempty"` // payer accounting IRI
	Status    string          `json:"status,omitempty"`
	Charges   []GatewayCharge `json:"charges"`
	ReturnURL string          `json:"returnUrl,omitempty"`
	Metadata  map[string]any  `json:"metadata,omitempty"`
	Links     []Link          `json:"links,omitempty"`
}

// PaymentURL returns the gateway redirect target, empty when absent.
func (c *GatewayCheckout) PaymentURL() string {
	for _, l := range c.Links {
		if l.Rel == "payment" {
			return l.Href
		}
	}
	return ""
}

type Tipjar struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Accounting string `json:"accounting"`
}

type MatchCall struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Status     string   `json:"status"`
	Accounting string   `json:"accounting"`
	Managers   []string `json:"managers,omitempty"`
}

type MatchCallSubmission struct {
	ID      int64  `json:"id"`
	Call    string `json:"call"`    // match call IRI
	Project string `json:"project"` // project IRI
	Status  string `json:"status"`
}

// MatchStrategy is the matchfunding formula configuration of a call. The
// formula itself is evaluated remotely; these are opaque knobs to us.
type MatchStrategy struct {
	Call       string  `json:"call"`
	Formula    string  `json:"formula"`
	Factor     float64 `json:"factor"`
	LimitTotal Money   `json:"limitTotal"`
	LimitEach  Money   `json:"limitEach"`
}

// collection unwraps hydra-style collection responses. API Platform emits
// either plain or hydra-prefixed keys depending on the requested format.
type collection[T any] struct {
	Member      []T `json:"member"`
	HydraMember []T `json:"hydra:member"`
	TotalItems  int `json:"totalItems"`
	HydraTotal  int `json:"hydra:totalItems"`
}

func (c collection[T]) items() []T {
	if len(c.Member) > 0 {
		return c.Member
	}
	return c.HydraMember
}
