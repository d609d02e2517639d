package fhirmodels

// Common FHIR value set constants used across the application.

// AppointmentStatus values per FHIR R4.
const (
	AppointmentProposed       = "proposed"
	AppointmentPending        = "pending"
	AppointmentBooked         = "booked"
	AppointmentArrived        = "arrived"
	AppointmentFulfilled      = "fulfilled"
	AppointmentCancelled      = "cancelled"
	AppointmentNoShow         = "noshow"
	AppointmentEnteredInError = "entered-in-error"
	AppointmentCheckedIn      = "checked-in"
	AppointmentWaitlist       = "waitlist"
)

// ParticipantType codes (v3-ParticipationType) plus the plain codes some
// servers send instead.
const (
	ParticipantPrimary          = "PPRF"
	ParticipantPrimaryCare      = "PRCP"
	ParticipantLocation         = "LOC"
	ParticipantPatientCode      = "patient"
	ParticipantPractitionerCode = "practitioner"
)

// Code system URIs.
const (
	SystemParticipationType    = "http://terminology.hl7.org/CodeSystem/v3-ParticipationType"
	SystemAppointmentType      = "http://terminology.hl7.org/CodeSystem/v2-0276"
	SystemContactRole          = "http://terminology.hl7.org/CodeSystem/v2-0131"
	SystemLOINC                = "http://loinc.org"
	SystemUCUM                 = "http://unitsofmeasure.org"
	SystemObservationCategory  = "http://terminology.hl7.org/CodeSystem/observation-category"
	SystemInterpretation       = "http://terminology.hl7.org/CodeSystem/v3-ObservationInterpretation"
	SystemDocumentCategory     = "http://hl7.org/fhir/us/core/CodeSystem/us-core-documentreference-category"
	SystemRxNorm               = "http://www.nlm.nih.gov/research/umls/rxnorm"
	SystemCoverageClass        = "http://terminology.hl7.org/CodeSystem/coverage-class"
	SystemCoverageCopayType    = "http://terminology.hl7.org/CodeSystem/coverage-copay-type"
	ExtensionAccountBalance    = "http://example.org/fhir/StructureDefinition/account-balance"
	ExtensionDeductibleMet     = "http://example.org/fhir/StructureDefinition/deductible-met"
	ExtensionBillingCategory   = "http://example.org/fhir/StructureDefinition/billing-category"
	ExtensionBillingLastUpdate = "http://example.org/fhir/StructureDefinition/billing-last-updated"
)

// ObservationCategory codes.
const (
	ObsCategoryVitalSigns = "vital-signs"
	ObsCategoryLaboratory = "laboratory"
)

// ObservationStatus codes.
const (
	ObsStatusRegistered  = "registered"
	ObsStatusPreliminary = "preliminary"
	ObsStatusFinal       = "final"
	ObsStatusAmended     = "amended"
	ObsStatusCorrected   = "corrected"
)

// ObservationInterpretation codes.
const (
	InterpretationNormal         = "N"
	InterpretationAbnormal       = "A"
	InterpretationCriticalAbnorm = "AA"
)

// LOINC codes for vital signs.
const (
	LOINCVitalSignsPanel   = "85353-1"
	LOINCBodyTemperature   = "8310-5"
	LOINCSystolicBP        = "8480-6"
	LOINCDiastolicBP       = "8462-4"
	LOINCHeartRate         = "8867-4"
	LOINCRespiratoryRate   = "9279-1"
	LOINCOxygenSaturation  = "2708-6"
	LOINCBodyWeight        = "29463-7"
	LOINCBodyHeight        = "8302-2"
	LOINCBMI               = "39156-5"
	LOINCPainSeverity      = "72514-3"
	LOINCProgressNote      = "18842-5"
	LOINCLabReport         = "33747-0"
	DocumentCategoryClinic = "clinical-note"
)

// MedicationRequest status codes.
const (
	MedRequestActive    = "active"
	MedRequestStopped   = "stopped"
	MedRequestCancelled = "cancelled"
	MedRequestCompleted = "completed"
)

// Coverage, Account and ChargeItem status codes.
const (
	CoverageActive         = "active"
	CoverageCancelled      = "cancelled"
	CoverageDraft          = "draft"
	CoverageEnteredInError = "entered-in-error"
	ChargeItemBillable     = "billable"
	ChargeItemNotBillable  = "not-billable"
	DocumentStatusCurrent  = "current"
)
