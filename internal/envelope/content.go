package envelope

// Kind tells plain message content apart from enveloped content.
type Kind uint8

const (
	KindPlain Kind = iota
	KindEnveloped
)

func (k Kind) String() string {
	switch k {
	case KindPlain:
		return "plain"
	case KindEnveloped:
		return "enveloped"
	default:
		return "unknown"
	}
}

// Content is stored message content, classified once when it is read.
// The zero value is empty plain content.
type Content struct {
	kind Kind
	raw  string
}

// Parse classifies a stored string.
func Parse(s string) Content {
	if IsEnvelope(s) {
		return Content{kind: KindEnveloped, raw: s}
	}
	return Content{kind: KindPlain, raw: s}
}

// Plain wraps s as plain content without inspecting it.
func Plain(s string) Content {
	return Content{kind: KindPlain, raw: s}
}

// Seal encrypts plaintext under key and returns it as enveloped content.
func Seal(plaintext, key string) (Content, error) {
	s, err := Encrypt(plaintext, key)
	if err != nil {
		return Content{}, err
	}
	return Content{kind: KindEnveloped, raw: s}, nil
}

func (c Content) Kind() Kind { return c.kind }

func (c Content) IsEnveloped() bool { return c.kind == KindEnveloped }

// String returns the stored form: the plaintext, or Prefix + payload.
func (c Content) String() string { return c.raw }

// Open decrypts enveloped content. Plain content is returned as is.
func (c Content) Open(key string) (string, error) {
	if c.kind != KindEnveloped {
		return c.raw, nil
	}
	return Decrypt(c.raw, key)
}

func (c Content) MarshalText() ([]byte, error) {
	return []byte(c.raw), nil
}

// UnmarshalText reclassifies the stored string, so content crossing a storage boundary is
// always parsed by prefix.
func (c *Content) UnmarshalText(b []byte) error {
	*c = Parse(string(b))
	return nil
}
