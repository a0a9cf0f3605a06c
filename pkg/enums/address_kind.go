package enums

// AddressKind distinguishes profile shipping and billing addresses.
type AddressKind string

const (
	AddressKindShipping AddressKind = "shipping"
	AddressKindBilling  AddressKind = "billing"
)

var addressKinds = newValueSet("address kind", AddressKindShipping, AddressKindBilling)

func (k AddressKind) String() string { return string(k) }

func (k AddressKind) IsValid() bool { return addressKinds.contains(k) }

func ParseAddressKind(value string) (AddressKind, error) {
	return addressKinds.parse(value)
}
