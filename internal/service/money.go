package service

import "github.com/shopspring/decimal"

// RoundMoney normalizes an amount to currency precision (2 decimal places)
// using round-half-away-from-zero. The basket snapshot total and the order
// total go through this same function, so client- and server-side sums
// agree bit for bit.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// OrderTotal computes the deterministic order total: sum of
// unit price x quantity over all lines, rounded once at the end.
func OrderTotal(items []CreateOrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity)))
		total = total.Add(line)
	}
	return RoundMoney(total)
}
