package hop

import (
	"errors"
	"math"
)

var errDivisionByZero = errors.New("division by zero")

type arithOp func(left, right Value) (Value, error)

// arithmetic builds a binary native. Both operands must share one of the
// numeric kinds; integers wrap at their fixed width.
func arithmetic(name string, op arithOp) NativeFunc {
	return func(c *Context) error {
		right, err := c.PopArg(name)
		if err != nil {
			return err
		}
		left, err := c.PopArg(name)
		if err != nil {
			return err
		}
		if left.Kind() != right.Kind() {
			return c.Errorf(ErrTypeMismatch, "%s: operands must share a type, got %s and %s", name, left.Kind(), right.Kind())
		}
		switch left.Kind() {
		case KindInteger, KindFloat, KindWord:
		default:
			return c.Errorf(ErrTypeMismatch, "%s: unsupported type %s", name, left.Kind())
		}
		result, err := op(left, right)
		if err != nil {
			return c.Errorf(ErrRange, "%s: %v", name, err)
		}
		c.PushResult(result)
		return nil
	}
}

func addValues(left, right Value) (Value, error) {
	switch left.Kind() {
	case KindInteger:
		return NewInteger(left.Integer() + right.Integer()), nil
	case KindFloat:
		return NewFloat(left.Float() + right.Float()), nil
	default:
		return NewWord(left.Word() + right.Word()), nil
	}
}

func subValues(left, right Value) (Value, error) {
	switch left.Kind() {
	case KindInteger:
		return NewInteger(left.Integer() - right.Integer()), nil
	case KindFloat:
		return NewFloat(left.Float() - right.Float()), nil
	default:
		return NewWord(left.Word() - right.Word()), nil
	}
}

func mulValues(left, right Value) (Value, error) {
	switch left.Kind() {
	case KindInteger:
		return NewInteger(left.Integer() * right.Integer()), nil
	case KindFloat:
		return NewFloat(left.Float() * right.Float()), nil
	default:
		return NewWord(left.Word() * right.Word()), nil
	}
}

func divValues(left, right Value) (Value, error) {
	switch left.Kind() {
	case KindInteger:
		if right.Integer() == 0 {
			return Value{}, errDivisionByZero
		}
		return NewInteger(left.Integer() / right.Integer()), nil
	case KindFloat:
		return NewFloat(left.Float() / right.Float()), nil
	default:
		if right.Word() == 0 {
			return Value{}, errDivisionByZero
		}
		return NewWord(left.Word() / right.Word()), nil
	}
}

func modValues(left, right Value) (Value, error) {
	switch left.Kind() {
	case KindInteger:
		if right.Integer() == 0 {
			return Value{}, errDivisionByZero
		}
		return NewInteger(left.Integer() % right.Integer()), nil
	case KindFloat:
		return NewFloat(math.Mod(left.Float(), right.Float())), nil
	default:
		if right.Word() == 0 {
			return Value{}, errDivisionByZero
		}
		return NewWord(left.Word() % right.Word()), nil
	}
}
