package memcache

// The genericResponse is an union of all response types.  Response interfaces
// will cover the fact that there's only one implementation for everything.
type genericResponse struct {
	// err is used by all responses.
	err error

	// result is used by mutate responses.
	result ResultKind

	// key is used by get / mutate / count responses.
	key string

	// found, value and tag are used by get responses.  found is also used by
	// count responses.
	found bool
	value interface{}
	tag   Tag

	// count is used by count response.
	count uint64

	// values is used by multi get response.
	values map[string]interface{}

	// versions is used by version response.
	versions map[int]string

	// statEntries is used by stat response.
	statEntries map[int](map[string]string)
}

func (r *genericResponse) Error() error {
	return r.err
}

func (r *genericResponse) Status() ResultKind {
	return r.result
}

func (r *genericResponse) Key() string {
	return r.key
}

func (r *genericResponse) Found() bool {
	return r.found
}

func (r *genericResponse) Value() interface{} {
	return r.value
}

func (r *genericResponse) Tag() Tag {
	return r.tag
}

func (r *genericResponse) Count() uint64 {
	return r.count
}

func (r *genericResponse) Values() map[string]interface{} {
	return r.values
}

func (r *genericResponse) Versions() map[int]string {
	return r.versions
}

func (r *genericResponse) Entries() map[int](map[string]string) {
	return r.statEntries
}

// This creates a normal Response (used only by flush).
func NewResponse() Response {
	return &genericResponse{}
}

// This creates a Response with an error.
func NewErrorResponse(err error) Response {
	return &genericResponse{err: err}
}

// This creates a get response for a found entry.
func NewGetResponse(key string, tag Tag, value interface{}) GetResponse {
	return &genericResponse{
		key:   key,
		found: true,
		tag:   tag,
		value: value,
	}
}

// This creates a get response for an absent entry.
func NewGetNotFoundResponse(key string) GetResponse {
	return &genericResponse{key: key}
}

// This creates a get response with an error.
func NewGetErrorResponse(key string, err error) GetResponse {
	return &genericResponse{
		key: key,
		err: err,
	}
}

// This creates a multi get response holding only the found entries.
func NewMultiGetResponse(values map[string]interface{}) MultiGetResponse {
	return &genericResponse{values: values}
}

// This creates a multi get response with an error.  No values are carried,
// since partial results must not be mistaken for complete ones.
func NewMultiGetErrorResponse(err error) MultiGetResponse {
	return &genericResponse{err: err}
}

// This creates a mutate response.
func NewMutateResponse(key string, result ResultKind) MutateResponse {
	return &genericResponse{
		key:    key,
		result: result,
	}
}

// This creates a mutate response with an error.
func NewMutateErrorResponse(key string, err error) MutateResponse {
	return &genericResponse{
		key:    key,
		result: NoResult,
		err:    err,
	}
}

// This creates a count response for an existing counter.
func NewCountResponse(key string, count uint64) CountResponse {
	return &genericResponse{
		key:   key,
		found: true,
		count: count,
	}
}

// This creates a count response for an absent counter.
func NewCountNotFoundResponse(key string) CountResponse {
	return &genericResponse{key: key}
}

// This creates a count response with an error.
func NewCountErrorResponse(key string, err error) CountResponse {
	return &genericResponse{
		key: key,
		err: err,
	}
}

// This creates a version response.
func NewVersionResponse(versions map[int]string) VersionResponse {
	return &genericResponse{versions: versions}
}

// This creates a version response with an error.  Versions of the shards
// which did answer are still available.
func NewVersionErrorResponse(
	err error,
	versions map[int]string) VersionResponse {

	return &genericResponse{
		err:      err,
		versions: versions,
	}
}

// This creates a stat response.
func NewStatResponse(entries map[int](map[string]string)) StatResponse {
	return &genericResponse{statEntries: entries}
}

// This creates a stat response with an error.  Entries of the shards which
// did answer are still available.
func NewStatErrorResponse(
	err error,
	entries map[int](map[string]string)) StatResponse {

	return &genericResponse{
		err:         err,
		statEntries: entries,
	}
}
