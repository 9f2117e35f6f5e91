package models

import "slices"

// UncategorizedLabel is used by the analyzer for records without a category.
const UncategorizedLabel = "Uncategorized"

var builtinCategories = map[RecordType][]string{
	RecordIncome: {
		"Salary", "Freelance", "Bonus",
		"Investments", "Rent", "Other",
	},
	RecordExpense: {
		"Groceries", "Rent", "Transport",
		"Utilities", "Food", "Clothing",
		"Entertainment", "Other",
	},
	RecordDebt: {
		"Credit Card", "Bank Loan",
		"Mortgage", "Car Loan",
		"Personal Loan", "Other",
	},
}

// BuiltinCategories returns a copy of the predefined categories for a record type.
func BuiltinCategories(t RecordType) []string {
	return slices.Clone(builtinCategories[t])
}
