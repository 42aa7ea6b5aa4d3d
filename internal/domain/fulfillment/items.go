package fulfillment

import "strings"

// BuildItems translates hub line items into remote order items for orderID,
// keeping the input order. Properties are flattened into Options as one
// "key:value" line per property.
func BuildItems(items []HubLineItem, orderID int64) []RemoteOrderItem {
	result := make([]RemoteOrderItem, 0, len(items))
	for _, item := range items {
		result = append(result, RemoteOrderItem{
			OrderID:      orderID,
			SKU:          item.ProductID,
			Description:  item.Name,
			Quantity:     item.Quantity,
			UnitPrice:    item.Price.String(),
			ThumbnailURL: item.ImageURL,
			Options:      flattenProperties(item.Properties),
		})
	}
	return result
}

func flattenProperties(props Properties) *string {
	if props == nil {
		return nil
	}
	var b strings.Builder
	for _, p := range props {
		b.WriteString(p.Key)
		b.WriteByte(':')
		b.WriteString(p.Value)
		b.WriteByte('\n')
	}
	options := b.String()
	return &options
}
