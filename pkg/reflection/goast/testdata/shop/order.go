package shop

import (
	"context"
	_ "embed"

	log "github.com/sirupsen/logrus"

	"github.com/go-park/weaver/pkg/aop"
)

// Order is a customer order.
//
//@Entity
//@Table("orders")
type Order struct {
	// ID of the order.
	ID   int
	note string // free text
}

func NewOrder() *Order { return &Order{} }

//@Transactional
func (o *Order) Save(ctx context.Context, ids ...int) error {
	log.WithField("ids", ids).Info("save")
	return nil
}

//@Final
func (o Order) Total() (sum int, err error) { return 0, nil }

func (o *Order) reset() {}

type Auditable interface {
	Save(ctx context.Context, ids ...int) error
}

//@Aspect
type LoggingAspect struct{}

//@Before("method(shop\\.Order->Save())")
//@After("method(.*->Total())")
func (LoggingAspect) Log(jp *aop.JoinPoint) error { return nil }

type Status int

func (s Status) String() string { return "" }

type OrderProxy struct {
	*Order
}

func (OrderProxy) AOPTargetClassName() string { return "shop.Order" }
