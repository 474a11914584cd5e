package pdftext

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

func init() {
	// Keep pdfcpu from creating a config dir under the user's home.
	model.ConfigPath = "disable"
}

func pdfcpuConfig() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// FirstPage returns a single-page PDF holding page 1 of data.
func FirstPage(data []byte) (out []byte, err error) {
	if len(data) == 0 {
		return nil, &LoadError{Op: "first page", Err: ErrEmptyDocument}
	}
	defer recoverLoad("first page", &err)
	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &buf, []string{"1"}, pdfcpuConfig()); err != nil {
		return nil, &LoadError{Op: "first page", Err: err}
	}
	return buf.Bytes(), nil
}

// PageCount reports the number of pages in data.
func PageCount(data []byte) (n int, err error) {
	if len(data) == 0 {
		return 0, &LoadError{Op: "page count", Err: ErrEmptyDocument}
	}
	defer recoverLoad("page count", &err)
	n, err = api.PageCount(bytes.NewReader(data), pdfcpuConfig())
	if err != nil {
		return 0, &LoadError{Op: "page count", Err: err}
	}
	return n, nil
}

func recoverLoad(op string, err *error) {
	if r := recover(); r != nil {
		*err = &LoadError{Op: op, Err: fmt.Errorf("parser panic: %v", r)}
	}
}
