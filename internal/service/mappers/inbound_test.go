package mappers_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/voterlookup/epic-extractor/internal/service/mappers"
)

const portalRecord = `{
	"epicNumber": "ABC1234567",
	"epicId": 99812,
	"fullName": "Asha Devi",
	"fullNameL1": "आशा देवी",
	"age": 42,
	"birthYear": "1983",
	"gender": "F",
	"partNumber": 17,
	"partSerialNumber": 230.0,
	"acNumber": "61",
	"psbuildingName": "Govt. Primary School",
	"psBuildingNameL1": "राजकीय प्राथमिक पाठशाला",
	"isVip": "N",
	"disabilityAny": false,
	"isWheelchairRequired": 1,
	"stateCd": "S08"
}`

var _ = Describe("VoterFromRecord", func() {
	var record map[string]any

	BeforeEach(func() {
		Expect(json.Unmarshal([]byte(portalRecord), &record)).To(Succeed())
	})

	It("maps the portal fields to columns", func() {
		extractedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		voter := mappers.VoterFromRecord("ABC1234567", record, extractedAt)

		Expect(voter.EpicNumber).To(Equal("ABC1234567"))
		Expect(*voter.EpicID).To(Equal("99812"))
		Expect(*voter.FullName).To(Equal("Asha Devi"))
		Expect(*voter.FullNameL1).To(Equal("आशा देवी"))
		Expect(*voter.Age).To(Equal(42))
		Expect(*voter.BirthYear).To(Equal(1983))
		Expect(*voter.PartNumber).To(Equal(17))
		Expect(*voter.PartSerialNumber).To(Equal(230))
		Expect(*voter.AcNumber).To(Equal(61))
		Expect(*voter.PsBuildingName).To(Equal("Govt. Primary School"))
		Expect(*voter.PsBuildingNameL1).To(Equal("राजकीय प्राथमिक पाठशाला"))
		Expect(*voter.IsVip).To(BeFalse())
		Expect(*voter.DisabilityAny).To(BeFalse())
		Expect(*voter.IsWheelchairRequired).To(BeTrue())
		Expect(*voter.StateCd).To(Equal("S08"))
	})

	It("leaves missing fields empty and applies flag defaults", func() {
		voter := mappers.VoterFromRecord("ABC1234567", record, time.Now())

		Expect(voter.RelationName).To(BeNil())
		Expect(voter.DistrictID).To(BeNil())
		Expect(voter.IsValidated).To(BeNil())
		Expect(voter.IsActive).To(BeTrue())
		Expect(voter.IsDeleted).To(BeFalse())
	})

	It("keeps explicit flags", func() {
		record["isActive"] = false
		record["isDeleted"] = true

		voter := mappers.VoterFromRecord("ABC1234567", record, time.Now())
		Expect(voter.IsActive).To(BeFalse())
		Expect(voter.IsDeleted).To(BeTrue())
	})

	It("falls back to the requested identifier", func() {
		delete(record, "epicNumber")

		voter := mappers.VoterFromRecord("XYZ7654321", record, time.Now())
		Expect(voter.EpicNumber).To(Equal("XYZ7654321"))
	})

	It("drops fractional integers", func() {
		record["age"] = 41.5

		voter := mappers.VoterFromRecord("ABC1234567", record, time.Now())
		Expect(voter.Age).To(BeNil())
	})

	It("stores the raw payload and the extraction metadata", func() {
		extractedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
		voter := mappers.VoterFromRecord("ABC1234567", record, extractedAt)

		Expect(voter.RawResponse.Data).To(HaveKeyWithValue("fullName", "Asha Devi"))
		Expect(voter.ExtractionMetadata.Data.ExtractedAt).To(Equal(extractedAt))
		Expect(voter.ExtractionMetadata.Data.APIVersion).To(Equal("1.0"))
	})
})
