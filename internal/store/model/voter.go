package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const ExtractionAPIVersion = "1.0"

type ExtractionMetadata struct {
	ExtractedAt time.Time `json:"extracted_at"`
	APIVersion  string    `json:"api_version"`
}

// Voter is the canonical record of one electoral roll entry. EpicNumber is the
// natural key and carries a unique index.
type Voter struct {
	ID              uuid.UUID `gorm:"primaryKey;column:id;type:VARCHAR(36);" json:"id"`
	EpicID          *string   `gorm:"column:epic_id" json:"epic_id"`
	EpicNumber      string    `gorm:"column:epic_number;not null;uniqueIndex:voters_epic_number_key" json:"epic_number"`
	FormReferenceNo *string   `gorm:"column:form_reference_no" json:"form_reference_no"`

	ApplicantFirstName   *string `gorm:"column:applicant_first_name" json:"applicant_first_name"`
	ApplicantFirstNameL1 *string `gorm:"column:applicant_first_name_l1" json:"applicant_first_name_l1"`
	ApplicantFirstNameL2 *string `gorm:"column:applicant_first_name_l2" json:"applicant_first_name_l2"`
	ApplicantLastName    *string `gorm:"column:applicant_last_name" json:"applicant_last_name"`
	ApplicantLastNameL1  *string `gorm:"column:applicant_last_name_l1" json:"applicant_last_name_l1"`
	ApplicantLastNameL2  *string `gorm:"column:applicant_last_name_l2" json:"applicant_last_name_l2"`
	FullName             *string `gorm:"column:full_name;index:voters_full_name_idx" json:"full_name"`
	FullNameL1           *string `gorm:"column:full_name_l1" json:"full_name_l1"`

	Age       *int    `gorm:"column:age" json:"age"`
	Gender    *string `gorm:"column:gender" json:"gender"`
	GenderL1  *string `gorm:"column:gender_l1" json:"gender_l1"`
	BirthYear *int    `gorm:"column:birth_year" json:"birth_year"`

	RelationType       *string `gorm:"column:relation_type" json:"relation_type"`
	RelationTypeL1     *string `gorm:"column:relation_type_l1" json:"relation_type_l1"`
	RelationName       *string `gorm:"column:relation_name" json:"relation_name"`
	RelationNameL1     *string `gorm:"column:relation_name_l1" json:"relation_name_l1"`
	RelationNameL2     *string `gorm:"column:relation_name_l2" json:"relation_name_l2"`
	RelationLName      *string `gorm:"column:relation_lname" json:"relation_lname"`
	RelationLNameL1    *string `gorm:"column:relation_lname_l1" json:"relation_lname_l1"`
	RelativeFullName   *string `gorm:"column:relative_full_name" json:"relative_full_name"`
	RelativeFullNameL1 *string `gorm:"column:relative_full_name_l1" json:"relative_full_name_l1"`

	PartNumber       *int    `gorm:"column:part_number" json:"part_number"`
	PartID           *int    `gorm:"column:part_id" json:"part_id"`
	PartName         *string `gorm:"column:part_name" json:"part_name"`
	PartNameL1       *string `gorm:"column:part_name_l1" json:"part_name_l1"`
	PartSerialNumber *int    `gorm:"column:part_serial_number" json:"part_serial_number"`
	SectionNo        *int    `gorm:"column:section_no" json:"section_no"`

	AsmblyName   *string `gorm:"column:asmbly_name" json:"asmbly_name"`
	AsmblyNameL1 *string `gorm:"column:asmbly_name_l1" json:"asmbly_name_l1"`
	AcID         *int    `gorm:"column:ac_id" json:"ac_id"`
	AcNumber     *int    `gorm:"column:ac_number" json:"ac_number"`
	PrlmntName   *string `gorm:"column:prlmnt_name" json:"prlmnt_name"`
	PrlmntNameL1 *string `gorm:"column:prlmnt_name_l1" json:"prlmnt_name_l1"`
	PrlmntNo     *int    `gorm:"column:prlmnt_no" json:"prlmnt_no"`

	DistrictValue   *string `gorm:"column:district_value" json:"district_value"`
	DistrictValueL1 *string `gorm:"column:district_value_l1" json:"district_value_l1"`
	DistrictCd      *string `gorm:"column:district_cd" json:"district_cd"`
	DistrictID      *int    `gorm:"column:district_id" json:"district_id"`
	DistrictNo      *int    `gorm:"column:district_no" json:"district_no"`
	StateName       *string `gorm:"column:state_name" json:"state_name"`
	StateNameL1     *string `gorm:"column:state_name_l1" json:"state_name_l1"`
	StateID         *int    `gorm:"column:state_id" json:"state_id"`
	StateCd         *string `gorm:"column:state_cd" json:"state_cd"`

	PsBuildingName    *string `gorm:"column:ps_building_name" json:"ps_building_name"`
	PsBuildingNameL1  *string `gorm:"column:ps_building_name_l1" json:"ps_building_name_l1"`
	PsRoomDetails     *string `gorm:"column:ps_room_details" json:"ps_room_details"`
	PsRoomDetailsL1   *string `gorm:"column:ps_room_details_l1" json:"ps_room_details_l1"`
	BuildingAddress   *string `gorm:"column:building_address" json:"building_address"`
	BuildingAddressL1 *string `gorm:"column:building_address_l1" json:"building_address_l1"`
	PartLatLong       *string `gorm:"column:part_lat_long" json:"part_lat_long"`

	DisabilityAny           *bool   `gorm:"column:disability_any" json:"disability_any"`
	DisabilityType          *string `gorm:"column:disability_type" json:"disability_type"`
	IsLocomotorDisabled     *bool   `gorm:"column:is_locomotor_disabled" json:"is_locomotor_disabled"`
	IsSpeechHearingDisabled *bool   `gorm:"column:is_speech_hearing_disabled" json:"is_speech_hearing_disabled"`
	IsVisuallyImpaired      *bool   `gorm:"column:is_visually_impaired" json:"is_visually_impaired"`
	OtherDisability         *string `gorm:"column:other_disability" json:"other_disability"`
	IsWheelchairRequired    *bool   `gorm:"column:is_wheelchair_required" json:"is_wheelchair_required"`
	Pwd                     *string `gorm:"column:pwd" json:"pwd"`
	PwdMarkingFormType      *string `gorm:"column:pwd_marking_form_type" json:"pwd_marking_form_type"`
	PwdMarkingRefNo         *string `gorm:"column:pwd_marking_ref_no" json:"pwd_marking_ref_no"`

	FormType    *string `gorm:"column:form_type" json:"form_type"`
	ProcessType *string `gorm:"column:process_type" json:"process_type"`
	StatusType  *string `gorm:"column:status_type" json:"status_type"`
	RevisionID  *int    `gorm:"column:revision_id" json:"revision_id"`

	CreatedDttm  *string `gorm:"column:created_dttm" json:"created_dttm"`
	ModifiedDttm *string `gorm:"column:modified_dttm" json:"modified_dttm"`
	EpicDatetime *string `gorm:"column:epic_datetime" json:"epic_datetime"`

	IsActive         bool  `gorm:"column:is_active;not null" json:"is_active"`
	IsDeleted        bool  `gorm:"column:is_deleted;not null" json:"is_deleted"`
	IsValidated      *bool `gorm:"column:is_validated" json:"is_validated"`
	IsVip            *bool `gorm:"column:is_vip" json:"is_vip"`
	IsForm8Migration *bool `gorm:"column:is_form8_migration" json:"is_form8_migration"`

	RawResponse        *JSONField[map[string]any]     `gorm:"column:raw_response;type:jsonb" json:"raw_response,omitempty"`
	ExtractionMetadata *JSONField[ExtractionMetadata] `gorm:"column:extraction_metadata;type:jsonb" json:"extraction_metadata,omitempty"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

type VoterList []Voter

func (v Voter) String() string {
	val, _ := json.Marshal(v)
	return string(val)
}

// DisplayName falls back to the applicant's first and last name when the
// upstream record carries no full name.
func (v Voter) DisplayName() string {
	if v.FullName != nil && *v.FullName != "" {
		return *v.FullName
	}
	name := ""
	if v.ApplicantFirstName != nil {
		name = *v.ApplicantFirstName
	}
	if v.ApplicantLastName != nil && *v.ApplicantLastName != "" {
		if name != "" {
			name += " "
		}
		name += *v.ApplicantLastName
	}
	return name
}
