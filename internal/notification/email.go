package notification

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dustin/go-humanize"
)

// Email is a composed message ready to be delivered.
type Email struct {
	Subject  string
	HTMLBody string
}

// PriceAlert holds the data shown in a price drop e-mail.
type PriceAlert struct {
	ProductName string
	ProductURL  string
	OldPrice    float64
	NewPrice    float64
}

var priceAlertTemplate = template.Must(template.New("price_alert").Parse(`<html>
	<body>
		<h2>Great News! Price Drop Detected</h2>
		<p>The price for <strong>{{.Name}}</strong> has dropped!</p>
		<ul>
			<li>Previous Price: <s>${{.OldPrice}}</s></li>
			<li>New Price: <strong>${{.NewPrice}}</strong></li>
			<li>You Save: ${{.Savings}}</li>
		</ul>
		<p><a href="{{.URL}}" style="background-color: #4CAF50; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">View Product</a></p>
	</body>
</html>
`))

// ComposePriceAlert renders the subject and HTML body of a price drop alert.
func ComposePriceAlert(alert PriceAlert) (Email, error) {
	var body bytes.Buffer
	err := priceAlertTemplate.Execute(&body, struct {
		Name     string
		URL      string
		OldPrice string
		NewPrice string
		Savings  string
	}{
		Name:     alert.ProductName,
		URL:      alert.ProductURL,
		OldPrice: FormatPrice(alert.OldPrice),
		NewPrice: FormatPrice(alert.NewPrice),
		Savings:  FormatPrice(alert.OldPrice - alert.NewPrice),
	})
	if err != nil {
		return Email{}, fmt.Errorf("failed to render price alert: %w", err)
	}

	return Email{
		Subject:  "Price Drop Alert: " + alert.ProductName,
		HTMLBody: body.String(),
	}, nil
}

// FormatPrice renders a price with thousands separators and two decimals.
func FormatPrice(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
