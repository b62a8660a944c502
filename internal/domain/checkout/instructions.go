package checkout

import (
	"fmt"

	"github.com/example/merch-storefront/internal/payment"
)

// Instructions are the method-specific next steps shown on confirmation
func (s *Session) Instructions() []string {
	if s.Stage != StageConfirmation || s.Result == nil {
		return nil
	}
	res := s.Result

	switch s.Method {
	case payment.MethodWallet:
		return []string{
			fmt.Sprintf("Your online wallet payment of %s %s was captured (transaction %s).", res.Currency, res.Amount.StringFixed(2), res.Reference),
			fmt.Sprintf("A receipt is on its way to %s.", s.Customer.Email),
		}

	case payment.MethodBankTransfer:
		lines := []string{fmt.Sprintf("Please transfer %s %s to:", res.Currency, res.Amount.StringFixed(2))}
		if d := res.BankDetails; d != nil {
			lines = append(lines,
				"Bank: "+d.BankName,
				"Account name: "+d.AccountName,
				"Account number: "+d.AccountNumber,
				"Routing number: "+d.RoutingNumber,
				"SWIFT: "+d.SwiftCode,
			)
			if d.IBAN != "" {
				lines = append(lines, "IBAN: "+d.IBAN)
			}
		}
		lines = append(lines, "Reference: "+res.Reference)
		return append(lines, res.Instructions...)

	case payment.MethodMobileMoney:
		return []string{
			fmt.Sprintf("Your mobile money payment of %s %s was received (receipt %s).", res.Currency, res.Amount.StringFixed(2), res.Reference),
			fmt.Sprintf("A confirmation is on its way to %s.", s.Customer.Email),
		}
	}
	return nil
}
