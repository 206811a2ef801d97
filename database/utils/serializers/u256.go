package serializers

import (
	"context"
	"fmt"
	"math/big"
	"reflect"

	"gorm.io/gorm/schema"
)

/*
"u256" 序列化器：*big.Int 在库中存为十进制字符串（numeric 列），
避免 uint64 溢出。
*/
type U256Serializer struct{}

func (U256Serializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}
	if field.FieldType != reflect.TypeOf((*big.Int)(nil)) {
		return fmt.Errorf("field %s is not a *big.Int", field.Name)
	}

	var parsed *big.Int
	switch v := dbValue.(type) {
	case string:
		var ok bool
		parsed, ok = new(big.Int).SetString(v, 10)
		if !ok {
			return fmt.Errorf("failed to parse %q as big.Int", v)
		}
	case []byte:
		var ok bool
		parsed, ok = new(big.Int).SetString(string(v), 10)
		if !ok {
			return fmt.Errorf("failed to parse %q as big.Int", string(v))
		}
	case int64:
		parsed = big.NewInt(v)
	default:
		return fmt.Errorf("unexpected database value type %T for u256 serializer", dbValue)
	}

	field.ReflectValueOf(ctx, dst).Set(reflect.ValueOf(parsed))
	return nil
}

func (U256Serializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil {
		return nil, nil
	}
	num, ok := fieldValue.(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected field type %T for u256 serializer", fieldValue)
	}
	if num == nil {
		return nil, nil
	}
	return num.String(), nil
}
