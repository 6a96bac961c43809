package taxonomy

import "sync"

// Vertex type names in the default catalog.
const (
	TypeEmailAddress      = "Email Address"
	TypeURL               = "URL"
	TypeIPv4Address       = "IPv4 Address"
	TypeIPv6Address       = "IPv6 Address"
	TypeHostName          = "Host Name"
	TypeTelephone         = "Telephone Identifier"
	TypeHash              = "Hash"
	TypeMD5Hash           = "MD5 Hash"
	TypeSHA1Hash          = "SHA1 Hash"
	TypeSHA256Hash        = "SHA256 Hash"
	TypeCountry           = "Country"
	TypePerson            = "Person"
	TypeOnlineIdentifier  = "Online Identifier"
	TypeMachineIdentifier = "Machine Identifier"
	TypeMACAddress        = "MAC Address"
)

// Transaction type names in the default catalog.
const (
	TypeCommunication = "Communication"
	TypeCorrelation   = "Correlation"
	TypeSimilarity    = "Similarity"
	TypeRelationship  = "Relationship"
	TypeLocation      = "Location"
	TypeNetwork       = "Network"
	TypeReferenced    = "Referenced"
	TypeBehaviour     = "Behaviour"
)

// DefaultDefinitions returns the built-in analytic type definitions.
func DefaultDefinitions() []Definition {
	return []Definition{
		{Name: TypePerson, Category: CategoryVertex, Description: "A person"},
		{Name: TypeOnlineIdentifier, Category: CategoryVertex, Description: "An online handle", Pattern: `@[A-Za-z0-9_]{1,30}`},
		{Name: TypeEmailAddress, Category: CategoryVertex, Description: "An email address", Super: TypeOnlineIdentifier,
			Pattern: `[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`},
		{Name: TypeURL, Category: CategoryVertex, Description: "A uniform resource locator", Pattern: `(?i)(https?|ftp)://\S+`},
		{Name: TypeHostName, Category: CategoryVertex, Description: "A DNS host name",
			Pattern: `(?i)([a-z0-9]([a-z0-9\-]{0,61}[a-z0-9])?\.)+[a-z]{2,}`},
		{Name: TypeIPv4Address, Category: CategoryVertex, Description: "An IPv4 address",
			Pattern: `((25[0-5]|2[0-4]\d|1?\d?\d)\.){3}(25[0-5]|2[0-4]\d|1?\d?\d)`},
		{Name: TypeIPv6Address, Category: CategoryVertex, Description: "An IPv6 address",
			Pattern: `(?i)[0-9a-f]{0,4}(:[0-9a-f]{0,4}){2,7}`},
		{Name: TypeTelephone, Category: CategoryVertex, Description: "A telephone number", Pattern: `\+?[0-9][0-9 \-]{5,18}[0-9]`},
		{Name: TypeHash, Category: CategoryVertex, Description: "A cryptographic digest"},
		{Name: TypeMD5Hash, Category: CategoryVertex, Super: TypeHash,
			Expr: `size(text) == 32 && text.matches('^[0-9a-fA-F]+$')`},
		{Name: TypeSHA1Hash, Category: CategoryVertex, Super: TypeHash,
			Expr: `size(text) == 40 && text.matches('^[0-9a-fA-F]+$')`},
		{Name: TypeSHA256Hash, Category: CategoryVertex, Super: TypeHash,
			Expr: `size(text) == 64 && text.matches('^[0-9a-fA-F]+$')`},
		{Name: TypeCountry, Category: CategoryVertex, Description: "A country name",
			Expr: `text in ['Australia', 'Brazil', 'Canada', 'China', 'France', 'Germany', 'India', 'Japan', 'New Zealand', 'South Africa', 'United Arab Emirates', 'United Kingdom', 'United States']`},
		{Name: TypeMachineIdentifier, Category: CategoryVertex, Description: "A hardware identifier"},
		{Name: TypeMACAddress, Category: CategoryVertex, Super: TypeMachineIdentifier,
			Pattern: `(?i)([0-9a-f]{2}[:\-]){5}[0-9a-f]{2}`},

		{Name: TypeCommunication, Category: CategoryTransaction, Description: "Communication between two parties"},
		{Name: TypeCorrelation, Category: CategoryTransaction, Description: "Two elements are correlated"},
		{Name: TypeSimilarity, Category: CategoryTransaction, Description: "Two elements are similar"},
		{Name: TypeRelationship, Category: CategoryTransaction, Description: "A general relationship"},
		{Name: TypeLocation, Category: CategoryTransaction, Description: "An element is located at another"},
		{Name: TypeNetwork, Category: CategoryTransaction, Description: "Network traffic"},
		{Name: TypeReferenced, Category: CategoryTransaction, Description: "An element references another"},
		{Name: TypeBehaviour, Category: CategoryTransaction, Description: "A behavioural link"},
	}
}

var defaultCatalog = sync.OnceValue(func() *Catalog {
	c, err := NewCatalog(DefaultDefinitions()...)
	if err != nil {
		panic("taxonomy: invalid default catalog: " + err.Error())
	}
	return c
})

// Default returns the built-in catalog. The same instance is returned on
// every call.
func Default() *Catalog {
	return defaultCatalog()
}
