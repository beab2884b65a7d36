package attendify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// doGetJSON performs a GET request and unmarshals the JSON response into
// the result type.
func doGetJSON[T any](c *Client, ctx context.Context, pathSegments ...string) (*T, error) {
	return doRequestJSON[T](c, ctx, http.MethodGet, nil, pathSegments...)
}

// doPostJSON performs a POST request with a JSON body and unmarshals the
// JSON response.
func doPostJSON[T any](c *Client, ctx context.Context, requestBody any, pathSegments ...string) (*T, error) {
	return doRequestJSON[T](c, ctx, http.MethodPost, requestBody, pathSegments...)
}

// doRequestJSON is the internal helper behind every operation. It applies
// the error mapping contract: transport failures are classified via
// classify; a non-2xx status with a decodable JSON body is passed through
// as application data; an undecodable non-2xx body is KindUnauthorized for
// 401/403 and KindInvalidResponse otherwise; a 2xx body that fails to
// decode is KindUnknown.
func doRequestJSON[T any](c *Client, ctx context.Context, method string, requestBody any, pathSegments ...string) (*T, error) {
	url := c.resolveURL(pathSegments...)

	var bodyReader io.Reader
	if requestBody != nil {
		jsonBody, err := json.Marshal(requestBody)
		if err != nil {
			return nil, remoteErr(KindUnknown, err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return nil, remoteErr(KindUnknown, err)
	}

	if token := c.token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, classify(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, remoteErr(KindUnknown, err)
	}

	var result T
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if json.Unmarshal(body, &result) == nil {
			// Application-level rejection (e.g. invalid credentials,
			// consent required). The caller reads the Error field.
			return &result, nil
		}
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, remoteErr(KindUnauthorized, statusError(resp.StatusCode))
		}
		return nil, remoteErr(KindInvalidResponse, statusError(resp.StatusCode))
	}

	if err := json.Unmarshal(body, &result); err != nil {
		return nil, remoteErr(KindUnknown, err)
	}
	return &result, nil
}

type statusError int

func (s statusError) Error() string {
	return fmt.Sprintf("request failed with status %d", int(s))
}
