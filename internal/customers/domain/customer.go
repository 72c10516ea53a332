package domain

import (
	"errors"
	"fmt"
	"strings"

	sharedDomain "github.com/felixgeelhaar/covera/internal/shared/domain"
)

var (
	ErrCustomerNotFound      = fmt.Errorf("%w: customer", sharedDomain.ErrNotFound)
	ErrGatewayCustomerSet    = fmt.Errorf("%w: customer already has a gateway customer", sharedDomain.ErrConflict)
	ErrCustomerEmptyAuthUser = errors.New("authorization server user id is required")
)

// Contact holds how a customer is reached.
type Contact struct {
	PhoneNumber string `json:"phoneNumber,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Billing holds the invoicing address.
type Billing struct {
	LastName  string `json:"lastName,omitempty"`
	FirstName string `json:"firstName,omitempty"`
	Company   string `json:"company,omitempty"`
	Address   string `json:"address,omitempty"`
	PostCode  string `json:"postCode,omitempty"`
	City      string `json:"city,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Payment links the customer to the payment gateway.
type Payment struct {
	EcommerceCustomer string `json:"ecommerceCustomer,omitempty"`
}

// IdentityDocs are object-storage keys of identity proofs.
type IdentityDocs struct {
	IDCardDocURL         string `json:"idCardDocURL,omitempty"`
	ResidencyProofDocURL string `json:"residencyProofDocURL,omitempty"`
}

// PaymentDocs are object-storage keys of signed payment documents.
type PaymentDocs struct {
	TermsOfSaleDocURL string `json:"termsOfSaleDocURL,omitempty"`
}

// Profile is a partial update of the customer sub documents. Nil parts and
// empty fields are left untouched.
type Profile struct {
	Contact      *Contact      `json:"contact,omitempty"`
	Billing      *Billing      `json:"billing,omitempty"`
	IdentityDocs *IdentityDocs `json:"identityDocs,omitempty"`
	PaymentDocs  *PaymentDocs  `json:"paymentDocs,omitempty"`
}

// DocumentKeys returns the object-storage keys referenced by the profile,
// keyed by field name.
func (p Profile) DocumentKeys() map[string]string {
	keys := map[string]string{}
	if p.IdentityDocs != nil {
		if p.IdentityDocs.IDCardDocURL != "" {
			keys["idCardDocURL"] = p.IdentityDocs.IDCardDocURL
		}
		if p.IdentityDocs.ResidencyProofDocURL != "" {
			keys["residencyProofDocURL"] = p.IdentityDocs.ResidencyProofDocURL
		}
	}
	if p.PaymentDocs != nil && p.PaymentDocs.TermsOfSaleDocURL != "" {
		keys["termsOfSaleDocURL"] = p.PaymentDocs.TermsOfSaleDocURL
	}
	return keys
}

// Customer is a policy holder, or an insurer account when insurer is set.
type Customer struct {
	sharedDomain.BaseAggregateRoot
	authServerUserID string
	firstName        string
	lastName         string
	fullName         string
	contact          Contact
	billing          Billing
	payment          Payment
	identityDocs     IdentityDocs
	paymentDocs      PaymentDocs
	insurer          bool
}

// NewCustomer creates a customer bound to an authorization-server account.
func NewCustomer(authServerUserID, email, firstName, lastName, fullName string) (*Customer, error) {
	authServerUserID = strings.TrimSpace(authServerUserID)
	if authServerUserID == "" {
		return nil, ErrCustomerEmptyAuthUser
	}

	c := &Customer{
		BaseAggregateRoot: sharedDomain.NewBaseAggregateRoot(),
		authServerUserID:  authServerUserID,
		firstName:         strings.TrimSpace(firstName),
		lastName:          strings.TrimSpace(lastName),
		fullName:          strings.TrimSpace(fullName),
		contact:           Contact{Email: strings.TrimSpace(email)},
	}
	if c.fullName == "" {
		c.fullName = strings.TrimSpace(c.firstName + " " + c.lastName)
	}

	c.AddDomainEvent(NewCustomerCreated(c))
	return c, nil
}

// Getters
func (c *Customer) AuthServerUserID() string   { return c.authServerUserID }
func (c *Customer) FirstName() string          { return c.firstName }
func (c *Customer) LastName() string           { return c.lastName }
func (c *Customer) FullName() string           { return c.fullName }
func (c *Customer) Contact() Contact           { return c.contact }
func (c *Customer) Billing() Billing           { return c.billing }
func (c *Customer) Payment() Payment           { return c.payment }
func (c *Customer) IdentityDocs() IdentityDocs { return c.identityDocs }
func (c *Customer) PaymentDocs() PaymentDocs   { return c.paymentDocs }
func (c *Customer) IsInsurer() bool            { return c.insurer }

// GatewayCustomerID is the payment gateway customer id, empty until registered.
func (c *Customer) GatewayCustomerID() string { return c.payment.EcommerceCustomer }

// AttachGatewayCustomer stores the gateway customer id once.
func (c *Customer) AttachGatewayCustomer(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("gateway customer id is required")
	}
	if c.payment.EcommerceCustomer != "" {
		if c.payment.EcommerceCustomer == id {
			return nil
		}
		return ErrGatewayCustomerSet
	}
	c.payment.EcommerceCustomer = id
	c.Touch()
	c.AddDomainEvent(NewGatewayCustomerRegistered(c))
	return nil
}

// MergeProfile overwrites every non-empty field of p.
func (c *Customer) MergeProfile(p Profile) {
	changed := false
	if p.Contact != nil {
		changed = mergeString(&c.contact.PhoneNumber, p.Contact.PhoneNumber) || changed
		changed = mergeString(&c.contact.Email, p.Contact.Email) || changed
	}
	if p.Billing != nil {
		changed = mergeString(&c.billing.LastName, p.Billing.LastName) || changed
		changed = mergeString(&c.billing.FirstName, p.Billing.FirstName) || changed
		changed = mergeString(&c.billing.Company, p.Billing.Company) || changed
		changed = mergeString(&c.billing.Address, p.Billing.Address) || changed
		changed = mergeString(&c.billing.PostCode, p.Billing.PostCode) || changed
		changed = mergeString(&c.billing.City, p.Billing.City) || changed
		changed = mergeString(&c.billing.Country, p.Billing.Country) || changed
	}
	if p.IdentityDocs != nil {
		changed = mergeString(&c.identityDocs.IDCardDocURL, p.IdentityDocs.IDCardDocURL) || changed
		changed = mergeString(&c.identityDocs.ResidencyProofDocURL, p.IdentityDocs.ResidencyProofDocURL) || changed
	}
	if p.PaymentDocs != nil {
		changed = mergeString(&c.paymentDocs.TermsOfSaleDocURL, p.PaymentDocs.TermsOfSaleDocURL) || changed
	}
	if changed {
		c.Touch()
		c.AddDomainEvent(NewCustomerUpdated(c))
	}
}

func mergeString(dst *string, value string) bool {
	value = strings.TrimSpace(value)
	if value == "" || *dst == value {
		return false
	}
	*dst = value
	return true
}

// RehydrateCustomer recreates a customer from persisted state.
func RehydrateCustomer(
	base sharedDomain.BaseAggregateRoot,
	authServerUserID, firstName, lastName, fullName string,
	contact Contact,
	billing Billing,
	payment Payment,
	identityDocs IdentityDocs,
	paymentDocs PaymentDocs,
	insurer bool,
) *Customer {
	return &Customer{
		BaseAggregateRoot: base,
		authServerUserID:  authServerUserID,
		firstName:         firstName,
		lastName:          lastName,
		fullName:          fullName,
		contact:           contact,
		billing:           billing,
		payment:           payment,
		identityDocs:      identityDocs,
		paymentDocs:       paymentDocs,
		insurer:           insurer,
	}
}
