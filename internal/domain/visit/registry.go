package visit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/clinicflow/internal/domain"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Lookup resolves visit references while a new visit is validated.
type Lookup interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

// Variant holds the rules of one visit type.
type Variant interface {
	Type() Type
	// Decode builds the typed payload from its wire form. Empty input yields
	// the zero payload.
	Decode(raw json.RawMessage) (Payload, error)
	// Validate checks required fields and resolves references.
	Validate(ctx context.Context, p Payload, lookup Lookup) error
	// Apply copies p onto v: promoted columns plus the JSON payload.
	Apply(v *Visit, p Payload) error
	// DischargesPatient reports whether creating this variant ends the
	// patient's episode of care.
	DischargesPatient() bool
}

type Registry struct {
	variants map[Type]Variant
}

func NewRegistry(variants ...Variant) *Registry {
	r := &Registry{variants: make(map[Type]Variant, len(variants))}
	for _, v := range variants {
		r.variants[v.Type()] = v
	}
	return r
}

// DefaultRegistry knows initial, followup and discharge visits.
func DefaultRegistry() *Registry {
	return NewRegistry(initialVariant{}, followupVariant{}, dischargeVariant{})
}

func (r *Registry) Lookup(t Type) (Variant, error) {
	v, ok := r.variants[t]
	if !ok {
		return nil, fmt.Errorf("%q (want one of %s): %w", t, strings.Join(r.typeNames(), ", "), ErrUnknownVisitType)
	}
	return v, nil
}

func (r *Registry) Types() []Type {
	types := make([]Type, 0, len(r.variants))
	for t := range r.variants {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func (r *Registry) typeNames() []string {
	var names []string
	for _, t := range r.Types() {
		names = append(names, string(t))
	}
	return names
}

func decodeInto(raw json.RawMessage, dst any) error {
	if isEmptyJSON(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return domain.NewValidationError("payload is malformed: " + err.Error())
	}
	return nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func encodePayload(v *Visit, p Payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return domain.NewValidationError("payload is not valid JSON")
	}
	v.Payload = datatypes.JSON(b)
	return nil
}

type initialVariant struct{}

func (initialVariant) Type() Type              { return TypeInitial }
func (initialVariant) DischargesPatient() bool { return false }

func (initialVariant) Decode(raw json.RawMessage) (Payload, error) {
	var p InitialPayload
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (initialVariant) Validate(_ context.Context, p Payload, _ Lookup) error {
	ip, ok := p.(InitialPayload)
	if !ok {
		return ErrPayloadMismatch
	}
	if strings.TrimSpace(ip.ChiefComplaint) == "" {
		return domain.NewValidationError("chief_complaint is required for initial visits")
	}
	return nil
}

func (initialVariant) Apply(v *Visit, p Payload) error {
	ip := p.(InitialPayload)
	cc := strings.TrimSpace(ip.ChiefComplaint)
	v.ChiefComplaint = &cc
	return encodePayload(v, ip)
}

type followupVariant struct{}

func (followupVariant) Type() Type              { return TypeFollowup }
func (followupVariant) DischargesPatient() bool { return false }

func (followupVariant) Decode(raw json.RawMessage) (Payload, error) {
	var p FollowupPayload
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (followupVariant) Validate(ctx context.Context, p Payload, lookup Lookup) error {
	fp, ok := p.(FollowupPayload)
	if !ok {
		return ErrPayloadMismatch
	}
	if fp.PreviousVisitID == uuid.Nil {
		return domain.NewValidationError("previous_visit_id is required for followup visits")
	}
	exists, err := lookup.Exists(ctx, fp.PreviousVisitID)
	if err != nil {
		return fmt.Errorf("resolving previous visit: %w", err)
	}
	if !exists {
		return ErrPreviousVisitNotFound
	}
	return nil
}

func (followupVariant) Apply(v *Visit, p Payload) error {
	fp := p.(FollowupPayload)
	prev := fp.PreviousVisitID
	v.PreviousVisitID = &prev
	return encodePayload(v, fp)
}

type dischargeVariant struct{}

func (dischargeVariant) Type() Type              { return TypeDischarge }
func (dischargeVariant) DischargesPatient() bool { return true }

func (dischargeVariant) Decode(raw json.RawMessage) (Payload, error) {
	var p DischargePayload
	if err := decodeInto(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (dischargeVariant) Validate(_ context.Context, p Payload, _ Lookup) error {
	if _, ok := p.(DischargePayload); !ok {
		return ErrPayloadMismatch
	}
	return nil
}

func (dischargeVariant) Apply(v *Visit, p Payload) error {
	return encodePayload(v, p.(DischargePayload))
}
