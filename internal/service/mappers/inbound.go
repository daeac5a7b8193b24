package mappers

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/voterlookup/epic-extractor/internal/store/model"
)

// VoterFromRecord normalizes the content payload returned by the portal.
// Missing keys become NULL columns; is_active defaults to true and is_deleted
// to false. The payload itself is kept as raw_response.
func VoterFromRecord(identifier string, record map[string]any, extractedAt time.Time) model.Voter {
	r := rawRecord(record)

	epicNumber := identifier
	if v := r.str("epicNumber"); v != nil && *v != "" {
		epicNumber = *v
	}

	buildingName := r.str("psbuildingName")
	if buildingName == nil {
		buildingName = r.str("psBuildingName")
	}

	return model.Voter{
		ID:              uuid.New(),
		EpicID:          r.str("epicId"),
		EpicNumber:      epicNumber,
		FormReferenceNo: r.str("formReferenceNo"),

		ApplicantFirstName:   r.str("applicantFirstName"),
		ApplicantFirstNameL1: r.str("applicantFirstNameL1"),
		ApplicantFirstNameL2: r.str("applicantFirstNameL2"),
		ApplicantLastName:    r.str("applicantLastName"),
		ApplicantLastNameL1:  r.str("applicantLastNameL1"),
		ApplicantLastNameL2:  r.str("applicantLastNameL2"),
		FullName:             r.str("fullName"),
		FullNameL1:           r.str("fullNameL1"),

		Age:       r.integer("age"),
		Gender:    r.str("gender"),
		GenderL1:  r.str("genderL1"),
		BirthYear: r.integer("birthYear"),

		RelationType:       r.str("relationType"),
		RelationTypeL1:     r.str("relationTypeL1"),
		RelationName:       r.str("relationName"),
		RelationNameL1:     r.str("relationNameL1"),
		RelationNameL2:     r.str("relationNameL2"),
		RelationLName:      r.str("relationLName"),
		RelationLNameL1:    r.str("relationLNameL1"),
		RelativeFullName:   r.str("relativeFullName"),
		RelativeFullNameL1: r.str("relativeFullNameL1"),

		PartNumber:       r.integer("partNumber"),
		PartID:           r.integer("partId"),
		PartName:         r.str("partName"),
		PartNameL1:       r.str("partNameL1"),
		PartSerialNumber: r.integer("partSerialNumber"),
		SectionNo:        r.integer("sectionNo"),

		AsmblyName:   r.str("asmblyName"),
		AsmblyNameL1: r.str("asmblyNameL1"),
		AcID:         r.integer("acId"),
		AcNumber:     r.integer("acNumber"),
		PrlmntName:   r.str("prlmntName"),
		PrlmntNameL1: r.str("prlmntNameL1"),
		PrlmntNo:     r.integer("prlmntNo"),

		DistrictValue:   r.str("districtValue"),
		DistrictValueL1: r.str("districtValueL1"),
		DistrictCd:      r.str("districtCd"),
		DistrictID:      r.integer("districtId"),
		DistrictNo:      r.integer("districtNo"),
		StateName:       r.str("stateName"),
		StateNameL1:     r.str("stateNameL1"),
		StateID:         r.integer("stateId"),
		StateCd:         r.str("stateCd"),

		PsBuildingName:    buildingName,
		PsBuildingNameL1:  r.str("psBuildingNameL1"),
		PsRoomDetails:     r.str("psRoomDetails"),
		PsRoomDetailsL1:   r.str("psRoomDetailsL1"),
		BuildingAddress:   r.str("buildingAddress"),
		BuildingAddressL1: r.str("buildingAddressL1"),
		PartLatLong:       r.str("partLatLong"),

		DisabilityAny:           r.boolean("disabilityAny"),
		DisabilityType:          r.str("disabilityType"),
		IsLocomotorDisabled:     r.boolean("isLocomotorDisabled"),
		IsSpeechHearingDisabled: r.boolean("isSpeechHearingDisabled"),
		IsVisuallyImpaired:      r.boolean("isVisuallyImpaired"),
		OtherDisability:         r.str("otherDisability"),
		IsWheelchairRequired:    r.boolean("isWheelchairRequired"),
		Pwd:                     r.str("pwd"),
		PwdMarkingFormType:      r.str("pwdMarkingFormType"),
		PwdMarkingRefNo:         r.str("pwdMarkingRefNo"),

		FormType:    r.str("formType"),
		ProcessType: r.str("processType"),
		StatusType:  r.str("statusType"),
		RevisionID:  r.integer("revisionId"),

		CreatedDttm:  r.str("createdDttm"),
		ModifiedDttm: r.str("modifiedDttm"),
		EpicDatetime: r.str("epicDatetime"),

		IsActive:         r.booleanOr("isActive", true),
		IsDeleted:        r.booleanOr("isDeleted", false),
		IsValidated:      r.boolean("isValidated"),
		IsVip:            r.boolean("isVip"),
		IsForm8Migration: r.boolean("isForm8Migration"),

		RawResponse: model.MakeJSONField(map[string]any(record)),
		ExtractionMetadata: model.MakeJSONField(model.ExtractionMetadata{
			ExtractedAt: extractedAt,
			APIVersion:  model.ExtractionAPIVersion,
		}),
	}
}

type rawRecord map[string]any

func (r rawRecord) str(key string) *string {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		s = strconv.FormatBool(t)
	case json.Number:
		s = t.String()
	default:
		b, err := json.Marshal(t)
		if err != nil {
			s = fmt.Sprint(t)
		} else {
			s = string(b)
		}
	}
	return &s
}

// integer accepts JSON numbers and numeric strings. Fractional or
// unparsable values are dropped.
func (r rawRecord) integer(key string) *int {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		return &t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return nil
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = n
	default:
		return nil
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	i := int(f)
	return &i
}

func (r rawRecord) boolean(key string) *bool {
	v, ok := r[key]
	if !ok || v == nil {
		return nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case float64:
		b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "t", "y", "yes", "1":
			b = true
		case "false", "f", "n", "no", "0":
			b = false
		default:
			return nil
		}
	default:
		return nil
	}
	return &b
}

func (r rawRecord) booleanOr(key string, def bool) bool {
	if b := r.boolean(key); b != nil {
		return *b
	}
	return def
}
