package enums

// UserRole is carried in access tokens. Staff may drive admin order
// transitions; customers only see their own orders.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleStaff    UserRole = "staff"
)

var userRoles = newValueSet("user role", UserRoleCustomer, UserRoleStaff)

func (r UserRole) String() string { return string(r) }

func (r UserRole) IsValid() bool { return userRoles.contains(r) }
