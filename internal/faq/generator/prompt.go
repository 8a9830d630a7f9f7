package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/railzwaylabs/shopfaq/internal/faq/domain"
)

const maxReviews = 5

const systemPrompt = `You are an expert e-commerce copywriter specializing in creating helpful FAQ sections for product pages.
Your goal is to generate the most common and useful questions customers would ask about a product, along with clear, concise answers.
Base your FAQs entirely on the product information provided. Do not invent features or specifications not mentioned.
Always respond with valid JSON only, no markdown, no explanation.`

var (
	htmlTag    = regexp.MustCompile(`<[^>]*>`)
	whitespace = regexp.MustCompile(`\s+`)
)

// Prompt is the system and user message pair sent to every provider.
type Prompt struct {
	System string
	User   string
}

func BuildPrompt(product domain.Product, count int) Prompt {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on the following product data, generate exactly %d frequently asked questions with answers.\n\n", count)
	b.WriteString(productContext(product))
	b.WriteString(`

Return ONLY a JSON array in this exact format:
[
  {
    "question": "Question here?",
    "answer": "Answer here."
  }
]

Focus on: shipping & returns, sizing/fit, materials, care instructions, compatibility, warranty, usage, and any product-specific concerns.
Make answers helpful, honest, and based only on provided data.`)

	return Prompt{System: systemPrompt, User: b.String()}
}

func productContext(p domain.Product) string {
	lines := []string{"Product Title: " + p.Title}

	if desc := cleanHTML(p.Description); desc != "" {
		lines = append(lines, "\nDescription: "+desc)
	}
	if p.ProductType != "" {
		lines = append(lines, "\nProduct Type: "+p.ProductType)
	}
	if p.Vendor != "" {
		lines = append(lines, "Vendor: "+p.Vendor)
	}
	if len(p.Tags) > 0 {
		lines = append(lines, "Tags: "+strings.Join(p.Tags, ", "))
	}

	if len(p.Variants) > 0 {
		lines = append(lines, "\nAvailable Variants:")
		for _, v := range p.Variants {
			parts := []string{"  - " + v.Title}
			if v.Price != "" {
				parts = append(parts, "Price: $"+v.Price)
			}
			if v.SKU != "" {
				parts = append(parts, "SKU: "+v.SKU)
			}
			if v.Weight != "" {
				unit := v.WeightUnit
				if unit == "" {
					unit = "g"
				}
				parts = append(parts, "Weight: "+v.Weight+unit)
			}
			if v.InventoryQuantity != nil {
				parts = append(parts, fmt.Sprintf("Stock: %d", *v.InventoryQuantity))
			}
			lines = append(lines, strings.Join(parts, " | "))
		}
	}

	if len(p.Options) > 0 {
		lines = append(lines, "\nProduct Options:")
		for _, opt := range p.Options {
			lines = append(lines, fmt.Sprintf("  %s: %s", opt.Name, strings.Join(opt.Values, ", ")))
		}
	}

	if len(p.Metafields) > 0 {
		lines = append(lines, "\nAdditional Product Information:")
		for _, mf := range p.Metafields {
			if mf.Value == "" {
				continue
			}
			lines = append(lines, fmt.Sprintf("  %s.%s: %s", mf.Namespace, mf.Key, mf.Value))
		}
	}

	if len(p.Reviews) > 0 {
		lines = append(lines, "\nCustomer Reviews Summary:")
		for i, r := range p.Reviews {
			if i == maxReviews {
				break
			}
			lines = append(lines, fmt.Sprintf("  - %q (Rating: %d/5)", r.Body, r.Rating))
		}
	}

	return strings.Join(lines, "\n")
}

func cleanHTML(s string) string {
	s = htmlTag.ReplaceAllString(s, " ")
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}
