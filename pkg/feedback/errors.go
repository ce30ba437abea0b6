package feedback

import "errors"

// ErrNoVector is returned for an intervention that carries no feature vector,
// so it cannot be written to the corpus.
var ErrNoVector = errors.New("intervention has no feature vector")
