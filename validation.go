package ledger

import (
	"sync"

	"github.com/Station-Manager/errors"
	"github.com/go-playground/validator/v10"
)

var validate *validator.Validate
var once sync.Once

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validateStruct runs struct-tag validation on v and wraps a failure in a
// DetailedError carrying op and msg.
func validateStruct(op errors.Op, v interface{}, msg string) error {
	if err := getValidator().Struct(v); err != nil {
		return errors.New(op).Err(err).Msg(msg)
	}
	return nil
}
