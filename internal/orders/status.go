package orders

type Status string

const (
	StatusCreated    Status = "created"
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	StatusReturned   Status = "returned"
)

var validNext = map[Status]map[Status]bool{
	StatusCreated:    {StatusPending: true, StatusCancelled: true},
	StatusPending:    {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true},
	StatusDelivered:  {StatusReturned: true},
	StatusCancelled:  {},
	StatusReturned:   {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Terminal: tidak ada transisi keluar.
func (s Status) Terminal() bool {
	return s.Valid() && len(validNext[s]) == 0
}
