package currency

import "fmt"

// Currency describes one supported currency. Decimals is the number of
// minor-unit decimal places and is fixed per code.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
	Region   string `json:"region"`
}

// registry is built once at init and never mutated afterwards. Access goes
// through Lookup/Supported only.
var registry = map[string]Currency{
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", Decimals: 2, Region: "Americas"},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", Decimals: 2, Region: "Europe"},
	"GBP": {Code: "GBP", Name: "Pound Sterling", Symbol: "£", Decimals: 2, Region: "Europe"},
	"INR": {Code: "INR", Name: "Indian Rupee", Symbol: "₹", Decimals: 2, Region: "Asia"},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", Symbol: "S$", Decimals: 2, Region: "Asia"},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Decimals: 0, Region: "Asia"},
	"KRW": {Code: "KRW", Name: "South Korean Won", Symbol: "₩", Decimals: 0, Region: "Asia"},
	"KES": {Code: "KES", Name: "Kenyan Shilling", Symbol: "KSh", Decimals: 2, Region: "Africa"},
	"NGN": {Code: "NGN", Name: "Nigerian Naira", Symbol: "₦", Decimals: 2, Region: "Africa"},
	"ZAR": {Code: "ZAR", Name: "South African Rand", Symbol: "R", Decimals: 2, Region: "Africa"},

	"USDC": {Code: "USDC", Name: "USD Coin", Symbol: "USDC", Decimals: 6, Region: "Crypto"},
	"BTC":  {Code: "BTC", Name: "Bitcoin", Symbol: "₿", Decimals: 8, Region: "Crypto"},
	"ETH":  {Code: "ETH", Name: "Ether", Symbol: "Ξ", Decimals: 18, Region: "Crypto"},
}

// Lookup returns the currency for a 3-letter (or crypto) code.
func Lookup(code string) (Currency, error) {
	c, ok := registry[code]
	if !ok {
		return Currency{}, fmt.Errorf("unsupported currency: %s", code)
	}
	return c, nil
}

// IsSupported reports whether code is registered.
func IsSupported(code string) bool {
	_, ok := registry[code]
	return ok
}

// Supported returns all registered codes. The slice is a copy; callers may
// sort or mutate it freely.
func Supported() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}
