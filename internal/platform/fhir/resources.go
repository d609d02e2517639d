package fhir

import (
	"encoding/json"
	"errors"
	"fmt"
)

// TypedResource is implemented by every wire resource variant this module
// understands. The unexported marker keeps the set closed to this package, so
// DecodeResource and SupportedResourceTypes are the single place a new
// variant has to be registered.
type TypedResource interface {
	ResourceName() string
	LogicalID() string
	typedResource()
}

// ErrMissingResourceType is returned for input that carries no resourceType
// discriminator. This signals a programming error, not missing data.
var ErrMissingResourceType = errors.New("fhir: resource has no resourceType")

// UnsupportedResourceError reports a resourceType with no typed variant.
type UnsupportedResourceError struct {
	ResourceType string
}

func (e *UnsupportedResourceError) Error() string {
	return fmt.Sprintf("fhir: unsupported resource type %q", e.ResourceType)
}

// SupportedResourceTypes lists every resourceType DecodeResource accepts.
var SupportedResourceTypes = []string{
	"Patient",
	"Practitioner",
	"Appointment",
	"DocumentReference",
	"Observation",
	"MedicationRequest",
	"Coverage",
	"Account",
	"ChargeItem",
}

// DecodeResource reads the resourceType discriminator and unmarshals raw into
// the matching variant.
func DecodeResource(raw []byte) (TypedResource, error) {
	var head struct {
		ResourceType string `json:"resourceType"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, fmt.Errorf("fhir: decode resource: %w", err)
	}

	var r TypedResource
	switch head.ResourceType {
	case "":
		return nil, ErrMissingResourceType
	case "Patient":
		r = &Patient{}
	case "Practitioner":
		r = &Practitioner{}
	case "Appointment":
		r = &Appointment{}
	case "DocumentReference":
		r = &DocumentReference{}
	case "Observation":
		r = &Observation{}
	case "MedicationRequest":
		r = &MedicationRequest{}
	case "Coverage":
		r = &Coverage{}
	case "Account":
		r = &Account{}
	case "ChargeItem":
		r = &ChargeItem{}
	default:
		return nil, &UnsupportedResourceError{ResourceType: head.ResourceType}
	}

	if err := json.Unmarshal(raw, r); err != nil {
		return nil, fmt.Errorf("fhir: decode %s: %w", head.ResourceType, err)
	}
	return r, nil
}

// Decode unmarshals raw into the variant T, checking the discriminator.
func Decode[T TypedResource](raw []byte) (T, error) {
	var zero T
	r, err := DecodeResource(raw)
	if err != nil {
		return zero, err
	}
	typed, ok := r.(T)
	if !ok {
		return zero, fmt.Errorf("fhir: expected %T, got %s", zero, r.ResourceName())
	}
	return typed, nil
}

// -- Patient --

type PatientContact struct {
	Relationship []CodeableConcept `json:"relationship,omitempty"`
	Name         *HumanName        `json:"name,omitempty"`
	Telecom      []ContactPoint    `json:"telecom,omitempty"`
	Address      *Address          `json:"address,omitempty"`
}

type Patient struct {
	ResourceType string           `json:"resourceType"`
	ID           string           `json:"id,omitempty"`
	Meta         *Meta            `json:"meta,omitempty"`
	Identifier   []Identifier     `json:"identifier,omitempty"`
	Active       *bool            `json:"active,omitempty"`
	Name         []HumanName      `json:"name,omitempty"`
	Telecom      []ContactPoint   `json:"telecom,omitempty"`
	Gender       string           `json:"gender,omitempty"`
	BirthDate    string           `json:"birthDate,omitempty"`
	Address      []Address        `json:"address,omitempty"`
	Contact      []PatientContact `json:"contact,omitempty"`
}

// -- Practitioner --

type PractitionerQualification struct {
	Identifier []Identifier     `json:"identifier,omitempty"`
	Code       *CodeableConcept `json:"code,omitempty"`
	Period     *Period          `json:"period,omitempty"`
}

type Practitioner struct {
	ResourceType  string                      `json:"resourceType"`
	ID            string                      `json:"id,omitempty"`
	Meta          *Meta                       `json:"meta,omitempty"`
	Active        *bool                       `json:"active,omitempty"`
	Name          []HumanName                 `json:"name,omitempty"`
	Telecom       []ContactPoint              `json:"telecom,omitempty"`
	Qualification []PractitionerQualification `json:"qualification,omitempty"`
}

// -- Appointment --

type AppointmentParticipant struct {
	Type     []CodeableConcept `json:"type,omitempty"`
	Actor    *Reference        `json:"actor,omitempty"`
	Required string            `json:"required,omitempty"`
	Status   string            `json:"status,omitempty"`
}

type Appointment struct {
	ResourceType    string                   `json:"resourceType"`
	ID              string                   `json:"id,omitempty"`
	Meta            *Meta                    `json:"meta,omitempty"`
	Status          string                   `json:"status,omitempty"`
	ServiceType     []CodeableConcept        `json:"serviceType,omitempty"`
	AppointmentType *CodeableConcept         `json:"appointmentType,omitempty"`
	ReasonCode      []CodeableConcept        `json:"reasonCode,omitempty"`
	Description     string                   `json:"description,omitempty"`
	Start           string                   `json:"start,omitempty"`
	End             string                   `json:"end,omitempty"`
	MinutesDuration int                      `json:"minutesDuration,omitempty"`
	Participant     []AppointmentParticipant `json:"participant,omitempty"`
}

// -- DocumentReference --

type DocumentContent struct {
	Attachment *Attachment `json:"attachment,omitempty"`
}

type DocumentReference struct {
	ResourceType string            `json:"resourceType"`
	ID           string            `json:"id,omitempty"`
	Meta         *Meta             `json:"meta,omitempty"`
	Status       string            `json:"status,omitempty"`
	DocStatus    string            `json:"docStatus,omitempty"`
	Type         *CodeableConcept  `json:"type,omitempty"`
	Category     []CodeableConcept `json:"category,omitempty"`
	Subject      *Reference        `json:"subject,omitempty"`
	Date         string            `json:"date,omitempty"`
	Author       []Reference       `json:"author,omitempty"`
	Description  string            `json:"description,omitempty"`
	Content      []DocumentContent `json:"content,omitempty"`
}

// -- Observation --

type ObservationReferenceRange struct {
	Low  *Quantity `json:"low,omitempty"`
	High *Quantity `json:"high,omitempty"`
	Text string    `json:"text,omitempty"`
}

type ObservationComponent struct {
	Code           *CodeableConcept            `json:"code,omitempty"`
	ValueQuantity  *Quantity                   `json:"valueQuantity,omitempty"`
	ValueString    string                      `json:"valueString,omitempty"`
	Interpretation []CodeableConcept           `json:"interpretation,omitempty"`
	ReferenceRange []ObservationReferenceRange `json:"referenceRange,omitempty"`
}

type Observation struct {
	ResourceType      string                      `json:"resourceType"`
	ID                string                      `json:"id,omitempty"`
	Meta              *Meta                       `json:"meta,omitempty"`
	Status            string                      `json:"status,omitempty"`
	Category          []CodeableConcept           `json:"category,omitempty"`
	Code              *CodeableConcept            `json:"code,omitempty"`
	Subject           *Reference                  `json:"subject,omitempty"`
	EffectiveDateTime string                      `json:"effectiveDateTime,omitempty"`
	Issued            string                      `json:"issued,omitempty"`
	Performer         []Reference                 `json:"performer,omitempty"`
	ValueQuantity     *Quantity                   `json:"valueQuantity,omitempty"`
	ValueString       string                      `json:"valueString,omitempty"`
	Interpretation    []CodeableConcept           `json:"interpretation,omitempty"`
	ReferenceRange    []ObservationReferenceRange `json:"referenceRange,omitempty"`
	Note              []Annotation                `json:"note,omitempty"`
	Component         []ObservationComponent      `json:"component,omitempty"`
}

// -- MedicationRequest --

type TimingRepeat struct {
	BoundsPeriod *Period `json:"boundsPeriod,omitempty"`
	Frequency    int     `json:"frequency,omitempty"`
	Period       float64 `json:"period,omitempty"`
	PeriodUnit   string  `json:"periodUnit,omitempty"`
}

type Timing struct {
	Repeat *TimingRepeat    `json:"repeat,omitempty"`
	Code   *CodeableConcept `json:"code,omitempty"`
}

type Dosage struct {
	Text   string           `json:"text,omitempty"`
	Timing *Timing          `json:"timing,omitempty"`
	Route  *CodeableConcept `json:"route,omitempty"`
}

type MedicationRequest struct {
	ResourceType              string            `json:"resourceType"`
	ID                        string            `json:"id,omitempty"`
	Meta                      *Meta             `json:"meta,omitempty"`
	Status                    string            `json:"status,omitempty"`
	Intent                    string            `json:"intent,omitempty"`
	MedicationCodeableConcept *CodeableConcept  `json:"medicationCodeableConcept,omitempty"`
	Subject                   *Reference        `json:"subject,omitempty"`
	AuthoredOn                string            `json:"authoredOn,omitempty"`
	Requester                 *Reference        `json:"requester,omitempty"`
	ReasonCode                []CodeableConcept `json:"reasonCode,omitempty"`
	DosageInstruction         []Dosage          `json:"dosageInstruction,omitempty"`
	Note                      []Annotation      `json:"note,omitempty"`
}

// -- Coverage --

type CoverageClass struct {
	Type  *CodeableConcept `json:"type,omitempty"`
	Value string           `json:"value,omitempty"`
	Name  string           `json:"name,omitempty"`
}

type CoverageCost struct {
	Type          *CodeableConcept `json:"type,omitempty"`
	ValueQuantity *Quantity        `json:"valueQuantity,omitempty"`
	ValueMoney    *Money           `json:"valueMoney,omitempty"`
}

type Coverage struct {
	ResourceType      string          `json:"resourceType"`
	ID                string          `json:"id,omitempty"`
	Meta              *Meta           `json:"meta,omitempty"`
	Status            string          `json:"status,omitempty"`
	SubscriberID      string          `json:"subscriberId,omitempty"`
	Beneficiary       *Reference      `json:"beneficiary,omitempty"`
	Period            *Period         `json:"period,omitempty"`
	Payor             []Reference     `json:"payor,omitempty"`
	Class             []CoverageClass `json:"class,omitempty"`
	CostToBeneficiary []CoverageCost  `json:"costToBeneficiary,omitempty"`
	Extension         []Extension     `json:"extension,omitempty"`
}

// -- Account --

type Account struct {
	ResourceType string      `json:"resourceType"`
	ID           string      `json:"id,omitempty"`
	Meta         *Meta       `json:"meta,omitempty"`
	Status       string      `json:"status,omitempty"`
	Name         string      `json:"name,omitempty"`
	Subject      []Reference `json:"subject,omitempty"`
	Extension    []Extension `json:"extension,omitempty"`
}

// -- ChargeItem --

type ChargeItem struct {
	ResourceType  string           `json:"resourceType"`
	ID            string           `json:"id,omitempty"`
	Meta          *Meta            `json:"meta,omitempty"`
	Status        string           `json:"status,omitempty"`
	Code          *CodeableConcept `json:"code,omitempty"`
	Subject       *Reference       `json:"subject,omitempty"`
	PriceOverride *Money           `json:"priceOverride,omitempty"`
	Extension     []Extension      `json:"extension,omitempty"`
}

func (r *Patient) ResourceName() string           { return "Patient" }
func (r *Practitioner) ResourceName() string      { return "Practitioner" }
func (r *Appointment) ResourceName() string       { return "Appointment" }
func (r *DocumentReference) ResourceName() string { return "DocumentReference" }
func (r *Observation) ResourceName() string       { return "Observation" }
func (r *MedicationRequest) ResourceName() string { return "MedicationRequest" }
func (r *Coverage) ResourceName() string          { return "Coverage" }
func (r *Account) ResourceName() string           { return "Account" }
func (r *ChargeItem) ResourceName() string        { return "ChargeItem" }

func (r *Patient) LogicalID() string           { return r.ID }
func (r *Practitioner) LogicalID() string      { return r.ID }
func (r *Appointment) LogicalID() string       { return r.ID }
func (r *DocumentReference) LogicalID() string { return r.ID }
func (r *Observation) LogicalID() string       { return r.ID }
func (r *MedicationRequest) LogicalID() string { return r.ID }
func (r *Coverage) LogicalID() string          { return r.ID }
func (r *Account) LogicalID() string           { return r.ID }
func (r *ChargeItem) LogicalID() string        { return r.ID }

func (*Patient) typedResource()           {}
func (*Practitioner) typedResource()      {}
func (*Appointment) typedResource()       {}
func (*DocumentReference) typedResource() {}
func (*Observation) typedResource()       {}
func (*MedicationRequest) typedResource() {}
func (*Coverage) typedResource()          {}
func (*Account) typedResource()           {}
func (*ChargeItem) typedResource()        {}
