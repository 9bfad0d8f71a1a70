package arm

// DefaultLocation is used when a catalog call names no location.
const DefaultLocation = "eastus"

// Subscription is an Azure subscription visible to the signed-in user.
type Subscription struct {
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
	TenantID       string `json:"tenantId,omitempty"`
}

// Location is an Azure region.
type Location struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	RegionalDisplayName string `json:"regionalDisplayName,omitempty"`
}

// Publisher is a marketplace image publisher in one location.
type Publisher struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Location    string `json:"location"`
}

// Offer is a publisher's image offer.
type Offer struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Publisher   string `json:"publisher"`
	Location    string `json:"location"`
}

// SKU is an image plan within an offer. Versions is empty until loaded with
// CatalogClient.GetSKUVersions.
type SKU struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	Publisher   string   `json:"publisher"`
	Offer       string   `json:"offer"`
	Location    string   `json:"location"`
	Versions    []string `json:"versions"`
}

// CacheStats reports the number of live entries per catalog cache.
type CacheStats struct {
	Publishers int `json:"publishers"`
	Offers     int `json:"offers"`
	SKUs       int `json:"skus"`
}

// Total returns the number of entries across all caches.
func (s CacheStats) Total() int {
	return s.Publishers + s.Offers + s.SKUs
}

// wire shapes

type subscriptionResource struct {
	SubscriptionID string `json:"subscriptionId"`
	DisplayName    string `json:"displayName"`
	State          string `json:"state"`
	TenantID       string `json:"tenantId"`
}

func (r subscriptionResource) toSubscription() Subscription {
	return Subscription(r)
}

type locationResource struct {
	Name                string `json:"name"`
	DisplayName         string `json:"displayName"`
	RegionalDisplayName string `json:"regionalDisplayName"`
}

// namedResource is the shape of publisher, offer, SKU and version entries.
type namedResource struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}
