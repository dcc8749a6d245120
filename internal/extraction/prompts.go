package extraction

import (
	"strings"

	"cloud.google.com/go/civil"
)

// DefaultCategories are suggested to the model; it may still answer with a
// short category of its own.
var DefaultCategories = []string{
	"Food",
	"Groceries",
	"Transport",
	"Housing",
	"Health",
	"Clothing",
	"Leisure",
	"Education",
	"Electronics",
	"Salary",
	"Investments",
	"Other",
}

// buildPrompt assembles the instructions sent with every message.
func buildPrompt(text string, today civil.Date, categories []string) string {
	var b strings.Builder

	b.WriteString("You are a personal finance assistant. Extract every financial movement mentioned in the message below.\n\n")
	b.WriteString("Task:\n")
	b.WriteString("- A message may mention zero, one or several distinct purchases or incomes.\n")
	b.WriteString("- Output STRICT JSON only (no comments, no trailing commas, no extra text).\n")
	b.WriteString("- Output a JSON array of objects, one per movement. Output [] when nothing is understood.\n\n")

	b.WriteString("Each object must have these fields:\n")
	b.WriteString("- \"item\": string, the product, service or source of money (e.g. \"Running shoes\", \"Salary\")\n")
	b.WriteString("- \"total\": number, the full amount of the movement, always positive\n")
	b.WriteString("- \"date\": string, ISO format \"YYYY-MM-DD\" (use today's date when none is mentioned)\n")
	b.WriteString("- \"category\": string, a short category\n")
	b.WriteString("- \"flow\": \"expense\" for spending, \"income\" for money received\n")
	b.WriteString("- \"installments\": integer, number of installments (1 when not paid in installments)\n")
	b.WriteString("- \"payment_method\": \"credit\", \"debit\" or \"other\"\n\n")

	if len(categories) > 0 {
		b.WriteString("Prefer one of these categories: ")
		b.WriteString(strings.Join(categories, ", "))
		b.WriteString(".\n\n")
	}

	b.WriteString("Rules:\n")
	b.WriteString("- \"total\" is the whole purchase price, never the per-installment value.\n")
	b.WriteString("- Use \"credit\" only when a credit card is mentioned or implied by installments.\n\n")
	b.WriteString("Return ONLY valid raw JSON.\n")
	b.WriteString("Do NOT wrap the response in code fences.\n")
	b.WriteString("Output must begin with \"[\" and end with \"]\".\n\n")

	b.WriteString("Today's date: " + today.String() + "\n")
	b.WriteString("Message: \"" + text + "\"\n")

	return b.String()
}
