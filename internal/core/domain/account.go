package domain

// AccountStatus is the outcome of a hosting-account probe.
type AccountStatus string

const (
	AccountStatusUndetermined AccountStatus = "undetermined"
	AccountStatusNoAccount    AccountStatus = "no_account"
	AccountStatusRestricted   AccountStatus = "restricted"
	AccountStatusAvailable    AccountStatus = "available"
)

// Available reports whether the account can serve backup traffic.
// Every status other than AccountStatusAvailable is unavailable.
func (s AccountStatus) Available() bool {
	return s == AccountStatusAvailable
}
