package transportutil

import (
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/golangci/golangci-billing/internal/api/apierrors"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
)

type fieldSource string

const (
	urlPartSource  fieldSource = "urlPart"
	urlParamSource fieldSource = "urlParam"
	headerSource   fieldSource = "header"
)

// fieldTag is a parsed `request:"name,source,optional"` tag.
type fieldTag struct {
	name     string
	source   fieldSource
	optional bool
}

func parseFieldTag(rf reflect.StructField) (*fieldTag, error) {
	parts := strings.Split(rf.Tag.Get("request"), ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("bad request tag %q of field %s", rf.Tag, rf.Name)
	}

	ft := fieldTag{
		name:   strings.ToLower(parts[0]),
		source: fieldSource(parts[1]),
	}
	if ft.name == "" {
		ft.name = strings.ToLower(rf.Name)
	}

	switch parts[2] {
	case "", "required":
	case "optional":
		ft.optional = true
	default:
		return nil, fmt.Errorf("bad requiredness %q of field %s", parts[2], rf.Name)
	}

	return &ft, nil
}

func (ft fieldTag) lookup(r *http.Request) (string, error) {
	switch ft.source {
	case urlPartSource:
		return mux.Vars(r)[ft.name], nil
	case urlParamSource:
		return r.URL.Query().Get(ft.name), nil
	case headerSource:
		return r.Header.Get(ft.name), nil
	}

	return "", fmt.Errorf("unknown field source %q", ft.source)
}

// DecodeRequest fills the exported fields of the struct pointed by request:
// byte slice fields get the raw body, pointers to structs get tagged
// values of url parts, url params and headers.
func DecodeRequest(request interface{}, r *http.Request) error {
	val := reflect.ValueOf(request)
	if val.Kind() != reflect.Ptr || val.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("invalid request type %s, pointer to struct expected", val.Type())
	}
	val = val.Elem()

	for i := 0; i < val.NumField(); i++ {
		f := val.Field(i)
		if !f.CanSet() {
			continue
		}

		name := val.Type().Field(i).Name
		var err error
		if f.Type().ConvertibleTo(reflect.TypeOf([]byte(nil))) {
			err = decodeBody(f, r)
		} else {
			err = decodeTaggedStruct(f, r)
		}
		if err != nil {
			return errors.Wrapf(err, "can't decode request field %s", name)
		}
	}

	return nil
}

func decodeBody(f reflect.Value, r *http.Request) error {
	if r.Body == nil {
		return errors.New("no request body")
	}
	defer r.Body.Close()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errors.Wrapf(apierrors.ErrPayloadTooLarge, "body is larger than %d bytes", tooLarge.Limit)
		}
		return errors.Wrap(err, "failed to read http request body")
	}

	f.SetBytes(body)
	return nil
}

func decodeTaggedStruct(f reflect.Value, r *http.Request) error {
	if f.Kind() != reflect.Ptr || f.Type().Elem().Kind() != reflect.Struct {
		return fmt.Errorf("invalid field type %s, pointer to struct expected", f.Type())
	}

	ptr := reflect.New(f.Type().Elem())
	sv := ptr.Elem()
	for i := 0; i < sv.NumField(); i++ {
		ft, err := parseFieldTag(sv.Type().Field(i))
		if err != nil {
			return err
		}

		s, err := ft.lookup(r)
		if err != nil {
			return err
		}
		if s == "" {
			if !ft.optional {
				return fmt.Errorf("no required field %s", ft.name)
			}
			continue
		}

		if err = setFromString(sv.Field(i), s); err != nil {
			return errors.Wrapf(err, "failed to decode field %s value %q", ft.name, s)
		}
	}

	f.Set(ptr)
	return nil
}

func setFromString(v reflect.Value, s string) error {
	switch v.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		v.SetInt(n)
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return err
		}
		v.SetBool(b)
	default:
		return fmt.Errorf("unsupported type %s", v.Kind())
	}

	return nil
}
