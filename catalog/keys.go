package catalog

import "fmt"

// Cache keys. Every key family that a mutation invalidates shares a prefix
// so it can be dropped with one pattern invalidation.
const (
	keyUserBusinesses = "user_businesses"
	keyCategories     = "categories"
	keyCurrencies     = "currencies"
)

func keyBusiness(id int64) string { return fmt.Sprintf("business_%d", id) }

func keyMembers(businessID int64) string { return fmt.Sprintf("members_%d", businessID) }

// keyProductSearchFamily is the prefix shared by every product search of a
// business. The trailing separator keeps business 1 from matching 12.
func keyProductSearchFamily(businessID int64) string {
	return fmt.Sprintf("products_search_%d_", businessID)
}

func keyProductSearch(businessID int64, query string) string {
	return keyProductSearchFamily(businessID) + query
}
