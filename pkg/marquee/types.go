package marquee

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Language is the closed set of languages content can be stored in.
type Language string

const (
	LanguageZH Language = "zh"
	LanguageEN Language = "en"
)

// ParseLanguage parses a free-form string into a Language. Matching is
// case-insensitive; anything outside the closed set is a validation failure,
// never a silent default.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "zh":
		return LanguageZH, nil
	case "en":
		return LanguageEN, nil
	default:
		return "", &ValidationError{Field: "language", Reason: "unsupported language"}
	}
}

func (l Language) String() string { return string(l) }

// ResourceType is the closed set of resource kinds the system stores.
type ResourceType string

const (
	ResourceTypeMember   ResourceType = "member"
	ResourceTypeService  ResourceType = "service"
	ResourceTypeHome     ResourceType = "home"
	ResourceTypeContact  ResourceType = "contact"
	ResourceTypeArticle  ResourceType = "article"
	ResourceTypeCategory ResourceType = "category"
)

// ResourceTypes lists every resource kind, in storage ordering.
func ResourceTypes() []ResourceType {
	return []ResourceType{
		ResourceTypeMember,
		ResourceTypeService,
		ResourceTypeHome,
		ResourceTypeContact,
		ResourceTypeArticle,
		ResourceTypeCategory,
	}
}

// ParseResourceType parses a string into a ResourceType.
func ParseResourceType(s string) (ResourceType, error) {
	t := ResourceType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case ResourceTypeMember, ResourceTypeService, ResourceTypeHome,
		ResourceTypeContact, ResourceTypeArticle, ResourceTypeCategory:
		return t, nil
	default:
		return "", &ValidationError{Field: "resource_type", Reason: "unsupported resource type"}
	}
}

func (t ResourceType) String() string { return string(t) }

// ResourceID identifies one resource instance. It is assigned by the caller at
// creation time (typically a sortable unique id) and immutable afterwards.
type ResourceID string

// ParseResourceID validates a caller-supplied id string.
func ParseResourceID(s string) (ResourceID, error) {
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: "id", Reason: "must not be blank"}
	}
	return ResourceID(s), nil
}

func (id ResourceID) String() string { return string(id) }

// ContentID is the join key into content storage. It is derived
// deterministically and losslessly from a ResourceID and never constructed
// independently.
type ContentID string

// ContentIDOf derives the content id for a resource.
func ContentIDOf(id ResourceID) ContentID { return ContentID(id) }

func (id ContentID) String() string { return string(id) }

// ContentData is the opaque localized payload stored for one
// (ContentID, Language) pair. It is always a JSON document.
type ContentData []byte

func (d ContentData) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

func (d *ContentData) UnmarshalJSON(data []byte) error {
	*d = append((*d)[:0], data...)
	return nil
}

// AvatarData holds the derived image references stored for a member.
type AvatarData struct {
	LargeImage string `json:"large_image"`
	SmallImage string `json:"small_image"`
}

// Resource is the payload of one content resource. Exactly one implementation
// exists per ResourceType; the unexported method keeps the set closed.
type Resource interface {
	// ResourceType reports the kind this payload belongs to.
	ResourceType() ResourceType
	// Validate checks the kind-specific constraints. A failure is a
	// *ValidationError, never a panic.
	Validate() error

	normalize() Resource
}

// MemberData is the payload of a team-member resource.
type MemberData struct {
	Name        string `json:"name" validate:"notblank"`
	Description string `json:"description" validate:"notblank"`
}

func (d MemberData) ResourceType() ResourceType { return ResourceTypeMember }
func (d MemberData) Validate() error            { return validateStruct(d) }
func (d MemberData) normalize() Resource {
	d.Name = strings.TrimSpace(d.Name)
	d.Description = strings.TrimSpace(d.Description)
	return d
}

// ServiceData is the payload of a service resource.
type ServiceData struct {
	Title string `json:"title" validate:"notblank"`
	Data  string `json:"data" validate:"notblank"`
	Icon  string `json:"icon,omitempty"`
}

func (d ServiceData) ResourceType() ResourceType { return ResourceTypeService }
func (d ServiceData) Validate() error            { return validateStruct(d) }
func (d ServiceData) normalize() Resource {
	d.Title = strings.TrimSpace(d.Title)
	d.Data = strings.TrimSpace(d.Data)
	return d
}

// HomeData is the payload of the (singleton) home-page resource.
type HomeData struct {
	Data string `json:"data" validate:"notblank"`
}

func (d HomeData) ResourceType() ResourceType { return ResourceTypeHome }
func (d HomeData) Validate() error            { return validateStruct(d) }
func (d HomeData) normalize() Resource {
	d.Data = strings.TrimSpace(d.Data)
	return d
}

// ContactData is the payload of the (singleton) contact resource. The payload
// is a free-form structured blob; the only constraint is that it is a
// non-empty JSON object.
type ContactData struct {
	Data json.RawMessage `json:"data"`
}

func (d ContactData) ResourceType() ResourceType { return ResourceTypeContact }

func (d ContactData) Validate() error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d.Data, &fields); err != nil {
		return &ValidationError{Field: "data", Reason: "must be a JSON object"}
	}
	if len(fields) == 0 {
		return &ValidationError{Field: "data", Reason: "must not be empty"}
	}
	return nil
}

func (d ContactData) normalize() Resource { return d }

// ArticleData is the payload of an article resource.
type ArticleData struct {
	Category *string `json:"category,omitempty"`
	Title    string  `json:"title" validate:"notblank"`
	Data     string  `json:"data" validate:"notblank"`
}

func (d ArticleData) ResourceType() ResourceType { return ResourceTypeArticle }
func (d ArticleData) Validate() error            { return validateStruct(d) }
func (d ArticleData) normalize() Resource {
	d.Title = strings.TrimSpace(d.Title)
	d.Data = strings.TrimSpace(d.Data)
	return d
}

// CategoryData is the payload of an article-category resource.
type CategoryData struct {
	Icon *string `json:"icon,omitempty"`
	Name string  `json:"name" validate:"notblank"`
}

func (d CategoryData) ResourceType() ResourceType { return ResourceTypeCategory }
func (d CategoryData) Validate() error            { return validateStruct(d) }
func (d CategoryData) normalize() Resource {
	d.Name = strings.TrimSpace(d.Name)
	return d
}

// NewContentData validates a resource payload and serializes it into the
// opaque content blob that the content repository stores.
func NewContentData(r Resource) (ContentData, error) {
	if r == nil {
		return nil, &ValidationError{Field: "data", Reason: "payload is required"}
	}
	r = r.normalize()
	if err := r.Validate(); err != nil {
		return nil, err
	}
	// Contact stores its inner blob directly so the wire shape stays flat.
	if c, ok := r.(ContactData); ok {
		return ContentData(c.Data), nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, &OpError{Op: "encode content", Err: err}
	}
	return ContentData(raw), nil
}

// UnmarshalResource decodes a payload of the given kind. The switch is
// exhaustive over ResourceTypes; tests assert the mapping is total.
func UnmarshalResource(t ResourceType, data []byte) (Resource, error) {
	var (
		r   Resource
		err error
	)
	switch t {
	case ResourceTypeMember:
		var d MemberData
		err = json.Unmarshal(data, &d)
		r = d
	case ResourceTypeService:
		var d ServiceData
		err = json.Unmarshal(data, &d)
		r = d
	case ResourceTypeHome:
		var d HomeData
		err = json.Unmarshal(data, &d)
		r = d
	case ResourceTypeContact:
		r = ContactData{Data: append(json.RawMessage(nil), data...)}
	case ResourceTypeArticle:
		var d ArticleData
		err = json.Unmarshal(data, &d)
		r = d
	case ResourceTypeCategory:
		var d CategoryData
		err = json.Unmarshal(data, &d)
		r = d
	default:
		return nil, &ValidationError{Field: "resource_type", Reason: "unsupported resource type"}
	}
	if err != nil {
		return nil, &ValidationError{Field: "data", Reason: "malformed payload"}
	}
	return r, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// notblank rejects empty strings and strings made of whitespace only.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

func validateStruct(s any) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
		return &ValidationError{
			Field:  strings.ToLower(errs[0].Field()),
			Reason: "must not be blank",
		}
	}
	return &ValidationError{Field: "data", Reason: err.Error()}
}
