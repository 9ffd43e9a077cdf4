package orders

import "github.com/ariefcatur/go-storefront-orders/internal/apperr"

type Status string

const (
	StatusPending           Status = "PENDING"
	StatusProcessing        Status = "PROCESSING"
	StatusStockUpdateFailed Status = "STOCK_UPDATE_FAILED"
	StatusShipped           Status = "SHIPPED"
	StatusDelivered         Status = "DELIVERED"
	StatusCancelled         Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:           {StatusProcessing: true, StatusStockUpdateFailed: true, StatusCancelled: true},
	StatusProcessing:        {StatusShipped: true, StatusCancelled: true},
	StatusStockUpdateFailed: {StatusProcessing: true, StatusCancelled: true},
	StatusShipped:           {StatusDelivered: true},
	StatusDelivered:         {},
	StatusCancelled:         {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", apperr.InvalidArgument("unknown order status %q", s)
	}
	return st, nil
}
