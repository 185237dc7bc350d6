package middleware

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/angelmondragon/herbstore-backend/api/validators"
	pkgerrors "github.com/angelmondragon/herbstore-backend/pkg/errors"
)

// bufferBody reads at most validators.MaxBodyBytes of the request body and
// puts the bytes back on r for the next handler.
func bufferBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, validators.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid request body").
				WithDetails(map[string]string{"body": fmt.Sprintf("must be at most %d bytes", tooLarge.Limit)})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body")
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	return body, nil
}
