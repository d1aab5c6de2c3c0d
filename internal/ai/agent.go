package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"pharmacare/internal/database"
	"pharmacare/internal/models"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// RunAgent answers an admin's free-text question by letting the model call
// read-only tools over the inventory and sales data.
func RunAgent(userMessage string, apiKey string) (string, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return "", err
	}
	defer client.Close()

	model := client.GenerativeModel("gemini-2.0-flash-001")

	today := time.Now().Format("2006-01-02")

	systemPrompt := fmt.Sprintf(`SYSTEM: Today is %s. You are a pharmacy back-office assistant.

	RULES:
	1. INVENTORY: If the user asks for PRICE, STOCK, EXPIRY, or DETAILS of a medicine:
	   - Call 'check_inventory' to get the full list.
	   - Read the JSON to find the specific medicine and answer.
	2. REORDERING: If the user asks what needs restocking or reordering, call 'low_stock_report'.
	3. SALES: If the user asks for sales or revenue, use 'get_sales_report'.
	4. You have no write access. Never claim to have changed anything.

	USER: %s`, today, userMessage)

	model.Tools = []*genai.Tool{
		{
			FunctionDeclarations: []*genai.FunctionDeclaration{
				{
					Name:        "check_inventory",
					Description: "Get the full medicine list. Use this to find ANY medicine details like ID, Name, Generic Name, Selling Price, Stock, or Expiry Date.",
				},
				{
					Name:        "low_stock_report",
					Description: "List medicines at or below their minimum stock level, i.e. what needs reordering.",
				},
				{
					Name:        "get_sales_report",
					Description: "Get total sales revenue and invoice count for a date range.",
					Parameters: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"start_date": {Type: genai.TypeString, Description: "Start date (YYYY-MM-DD)"},
							"end_date":   {Type: genai.TypeString, Description: "End date (YYYY-MM-DD)"},
						},
						Required: []string{"start_date", "end_date"},
					},
				},
			},
		},
	}

	session := model.StartChat()

	resp, err := session.SendMessage(ctx, genai.Text(systemPrompt))
	if err != nil {
		return "", err
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		if funcCall, ok := part.(genai.FunctionCall); ok {
			switch funcCall.Name {
			case "check_inventory":
				return executeCheckInventory(ctx, session)
			case "low_stock_report":
				return executeLowStockReport(ctx, session)
			case "get_sales_report":
				return executeSalesReport(ctx, session, funcCall), nil
			}
		}
	}

	return printResponse(resp), nil
}

// --- TOOL IMPLEMENTATIONS ---

type simpleMedicine struct {
	ID       uint    `json:"id"`
	Name     string  `json:"name"`
	Generic  string  `json:"generic_name"`
	Stock    int     `json:"stock"`
	MinStock int     `json:"min_stock"`
	Price    string  `json:"selling_price"`
	LowStock bool    `json:"low_stock"`
	Expired  bool    `json:"expired"`
	Expiry   *string `json:"expiry_date,omitempty"`
}

func simplify(medicines []models.Medicine) []simpleMedicine {
	now := time.Now()
	var list []simpleMedicine
	for _, m := range medicines {
		sm := simpleMedicine{
			ID:       m.ID,
			Name:     m.Name,
			Generic:  m.GenericName,
			Stock:    m.QuantityInStock,
			MinStock: m.MinStockLevel,
			Price:    m.SellingPrice.String(),
			LowStock: m.IsLowStock(),
			Expired:  m.IsExpired(now),
		}
		if m.ExpiryDate != nil {
			expiry := m.ExpiryDate.Format("2006-01-02")
			sm.Expiry = &expiry
		}
		list = append(list, sm)
	}
	return list
}

func executeCheckInventory(ctx context.Context, session *genai.ChatSession) (string, error) {
	var medicines []models.Medicine
	database.DB.Where("is_active = ?", true).Find(&medicines)

	jsonBytes, _ := json.Marshal(simplify(medicines))

	finalResp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "check_inventory",
		Response: map[string]interface{}{"inventory": string(jsonBytes)},
	})
	if err != nil {
		return "", err
	}
	return printResponse(finalResp), nil
}

func executeLowStockReport(ctx context.Context, session *genai.ChatSession) (string, error) {
	var medicines []models.Medicine
	database.DB.Where("is_active = ? AND quantity_in_stock <= min_stock_level", true).Find(&medicines)

	jsonBytes, _ := json.Marshal(simplify(medicines))

	finalResp, err := session.SendMessage(ctx, genai.FunctionResponse{
		Name:     "low_stock_report",
		Response: map[string]interface{}{"low_stock": string(jsonBytes)},
	})
	if err != nil {
		return "", err
	}
	return printResponse(finalResp), nil
}

func executeSalesReport(ctx context.Context, session *genai.ChatSession, funcCall genai.FunctionCall) string {
	args := funcCall.Args
	startStr := args["start_date"].(string)
	endStr := args["end_date"].(string)

	start, err1 := time.Parse("2006-01-02", startStr)
	end, err2 := time.Parse("2006-01-02", endStr)

	if err1 != nil || err2 != nil {
		return "Error: Dates must be in YYYY-MM-DD format."
	}
	end = end.Add(23*time.Hour + 59*time.Minute)

	summary, err := database.GetSalesSummary(database.DB, start, end, 0)
	if err != nil {
		return "Error calculating sales."
	}

	finalResp, _ := session.SendMessage(ctx, genai.FunctionResponse{
		Name: "get_sales_report",
		Response: map[string]interface{}{
			"revenue":        summary.TotalRevenue.String(),
			"total_discount": summary.TotalDiscount.String(),
			"invoice_count":  summary.InvoiceCount,
		},
	})
	return printResponse(finalResp)
}

func printResponse(resp *genai.GenerateContentResponse) string {
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			return string(txt)
		}
	}
	return "I completed the action."
}
