// Package httputil holds the retry and status helpers of the gallery REST
// client.
//
// [StatusError] turns an HTTP status into a coded error. [Retry] retries
// only errors whose code is temporary, so a client marks a failure as
// retryable by choosing its code:
//
//	err := httputil.Retry(ctx, 3, 200*time.Millisecond, func() error {
//	    resp, err := http.DefaultClient.Do(req)
//	    if err != nil {
//	        return errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", req.URL.Path)
//	    }
//	    defer resp.Body.Close()
//	    return httputil.StatusError(resp.StatusCode, "")
//	})
package httputil
