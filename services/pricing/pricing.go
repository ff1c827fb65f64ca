package pricing

import "lingodoc/models"

// Per-page rates in USD.
const (
	CertifiedRate          = 15.0
	StandardRate           = 20.0
	BankStatementSurcharge = 10.0
)

// PerPageRate returns the per-page rate for the given translation options.
func PerPageRate(translationType string, bankStatement bool) float64 {
	rate := StandardRate
	if translationType == models.TierCertified {
		rate = CertifiedRate
	}
	if bankStatement {
		rate += BankStatementSurcharge
	}
	return rate
}

// DocumentPrice returns the price of a single document.
func DocumentPrice(pages int, translationType string, bankStatement bool) float64 {
	if pages < 1 {
		return 0
	}
	return PerPageRate(translationType, bankStatement) * float64(pages)
}

// CartItem carries the pricing inputs of one document in a cart.
type CartItem struct {
	Pages           int
	TranslationType string
	BankStatement   bool
}

// CartTotal sums per-document prices across a multi-document cart.
func CartTotal(items []CartItem) float64 {
	var total float64
	for _, item := range items {
		total += DocumentPrice(item.Pages, item.TranslationType, item.BankStatement)
	}
	return total
}
