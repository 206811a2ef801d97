package serializers

import (
	"context"
	"fmt"
	"reflect"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gorm.io/gorm/schema"
)

func init() {
	schema.RegisterSerializer("bytes", BytesSerializer{})
	schema.RegisterSerializer("u256", U256Serializer{})
}

type bytesProvider interface {
	Bytes() []byte
}

type bytesSetter interface {
	SetBytes([]byte)
}

/*
"bytes" 序列化器：common.Hash / common.Address 等定长字节类型
在库中存为原始字节。
*/
type BytesSerializer struct{}

func (BytesSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue interface{}) error {
	if dbValue == nil {
		return nil
	}
	var raw []byte
	switch v := dbValue.(type) {
	case []byte:
		raw = v
	case string:
		decoded, err := hexutil.Decode(v)
		if err != nil {
			return fmt.Errorf("failed to decode database value: %w", err)
		}
		raw = decoded
	default:
		return fmt.Errorf("unexpected database value type %T for bytes serializer", dbValue)
	}

	fieldValue := reflect.New(field.FieldType)
	if field.FieldType.Kind() == reflect.Pointer {
		nested := reflect.New(field.FieldType.Elem())
		if setter, ok := nested.Interface().(bytesSetter); ok {
			setter.SetBytes(raw)
			fieldValue.Elem().Set(nested)
		} else {
			return fmt.Errorf("field %s does not support SetBytes", field.Name)
		}
	} else if setter, ok := fieldValue.Interface().(bytesSetter); ok {
		setter.SetBytes(raw)
	} else if field.FieldType == reflect.TypeOf([]byte(nil)) {
		fieldValue.Elem().SetBytes(raw)
	} else {
		return fmt.Errorf("field %s does not support SetBytes", field.Name)
	}

	field.ReflectValueOf(ctx, dst).Set(fieldValue.Elem())
	return nil
}

func (BytesSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue interface{}) (interface{}, error) {
	if fieldValue == nil {
		return nil, nil
	}
	rv := reflect.ValueOf(fieldValue)
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		fieldValue = rv.Elem().Interface()
	}
	if provider, ok := fieldValue.(bytesProvider); ok {
		return provider.Bytes(), nil
	}
	if b, ok := fieldValue.([]byte); ok {
		return b, nil
	}
	return nil, fmt.Errorf("unexpected field type %T for bytes serializer", fieldValue)
}
