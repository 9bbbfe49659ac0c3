package domain

// Attribute names consumed from a policy request.
const (
	AttrRequest       = "request"
	AttrClientAddress = "client_address"
	AttrSender        = "sender"
	AttrRecipient     = "recipient"
)

// RequestKindPolicy is the request attribute value Postfix sends for an
// access policy delegation query.
const RequestKindPolicy = "smtpd_access_policy"

// Request is the attribute map of one policy exchange.
// The zero value is an empty request ready for use.
type Request struct {
	attrs map[string]string
}

// NewRequest builds a request from key/value pairs in order; see Set.
func NewRequest(pairs ...string) Request {
	var r Request
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// Set records an attribute. Only the first occurrence of a key is kept;
// later duplicates are ignored and Set reports false.
func (r *Request) Set(key, value string) bool {
	if r.attrs == nil {
		r.attrs = make(map[string]string)
	}
	if _, dup := r.attrs[key]; dup {
		return false
	}
	r.attrs[key] = value
	return true
}

// Get returns the attribute value, or "" when absent.
func (r Request) Get(key string) string { return r.attrs[key] }

// Len returns the number of distinct attributes.
func (r Request) Len() int { return len(r.attrs) }

// IsEmpty reports whether no attribute was recorded.
func (r Request) IsEmpty() bool { return len(r.attrs) == 0 }

// Kind returns the "request" attribute, e.g. "smtpd_access_policy".
func (r Request) Kind() string { return r.Get(AttrRequest) }

// ClientAddress returns the SMTP client's IP address as sent by Postfix.
func (r Request) ClientAddress() string { return r.Get(AttrClientAddress) }

// Sender returns the envelope sender, empty for the null sender.
func (r Request) Sender() string { return r.Get(AttrSender) }

// Recipient returns the envelope recipient, empty outside RCPT TO.
func (r Request) Recipient() string { return r.Get(AttrRecipient) }

// IsPolicyCheck reports whether this is an access policy query, the only kind
// network restrictions apply to.
func (r Request) IsPolicyCheck() bool { return r.Kind() == RequestKindPolicy }
