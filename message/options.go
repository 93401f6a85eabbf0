package message

import (
	"sort"
	"strings"
)

// Options is a list of options kept sorted by ID. Repeated options keep their insertion order.
type Options []Option

const maxPathValue = 255

// Find returns the half-open range [first, last) of options with the given ID.
func (options Options) Find(id OptionID) (int, int, error) {
	first := sort.Search(len(options), func(i int) bool { return options[i].ID >= id })
	last := sort.Search(len(options), func(i int) bool { return options[i].ID > id })
	if first == last {
		return -1, -1, ErrOptionNotFound
	}
	return first, last, nil
}

func (options Options) HasOption(id OptionID) bool {
	_, _, err := options.Find(id)
	return err == nil
}

// Add inserts opt after every option with the same ID.
func (options Options) Add(opt Option) Options {
	idx := sort.Search(len(options), func(i int) bool { return options[i].ID > opt.ID })
	options = append(options, Option{})
	copy(options[idx+1:], options[idx:])
	options[idx] = opt
	return options
}

// Set replaces every option with the same ID by opt.
func (options Options) Set(opt Option) Options {
	return options.Remove(opt.ID).Add(opt)
}

func (options Options) Remove(id OptionID) Options {
	first, last, err := options.Find(id)
	if err != nil {
		return options
	}
	n := copy(options[first:], options[last:])
	return options[:first+n]
}

// Clone returns a deep copy, so the result can be modified without touching the receiver.
func (options Options) Clone() Options {
	if options == nil {
		return nil
	}
	r := make(Options, 0, len(options))
	for _, o := range options {
		v := make([]byte, len(o.Value))
		copy(v, o.Value)
		r = append(r, Option{ID: o.ID, Value: v})
	}
	return r
}

func (options Options) GetBytes(id OptionID) ([]byte, error) {
	first, _, err := options.Find(id)
	if err != nil {
		return nil, err
	}
	return options[first].Value, nil
}

func (options Options) GetString(id OptionID) (string, error) {
	v, err := options.GetBytes(id)
	if err != nil {
		return "", err
	}
	return string(v), nil
}

func (options Options) GetUint32(id OptionID) (uint32, error) {
	v, err := options.GetBytes(id)
	if err != nil {
		return 0, err
	}
	val, _, err := DecodeUint32(v)
	return val, err
}

// GetStrings returns the values of all options with the given ID.
func (options Options) GetStrings(id OptionID) ([]string, error) {
	first, last, err := options.Find(id)
	if err != nil {
		return nil, err
	}
	r := make([]string, 0, last-first)
	for i := first; i < last; i++ {
		r = append(r, string(options[i].Value))
	}
	return r, nil
}

func (options Options) SetBytes(id OptionID, value []byte) Options {
	return options.Set(Option{ID: id, Value: value})
}

func (options Options) AddString(id OptionID, str string) Options {
	return options.Add(Option{ID: id, Value: []byte(str)})
}

func (options Options) SetString(id OptionID, str string) Options {
	return options.Set(Option{ID: id, Value: []byte(str)})
}

func (options Options) AddUint32(id OptionID, value uint32) Options {
	return options.Add(Option{ID: id, Value: encodeUint32(value)})
}

func (options Options) SetUint32(id OptionID, value uint32) Options {
	return options.Set(Option{ID: id, Value: encodeUint32(value)})
}

// SetPath replaces the Uri-Path options by the segments of path.
func (options Options) SetPath(path string) (Options, error) {
	o := options.Remove(URIPath)
	path = strings.TrimPrefix(path, "/")
	if path == "" {
		return o, nil
	}
	for _, seg := range strings.Split(path, "/") {
		if len(seg) > maxPathValue {
			return options, ErrInvalidValueLength
		}
		o = o.AddString(URIPath, seg)
	}
	return o, nil
}

// Path joins the Uri-Path options into "/a/b".
func (options Options) Path() (string, error) {
	segs, err := options.GetStrings(URIPath)
	if err != nil {
		return "", err
	}
	return "/" + strings.Join(segs, "/"), nil
}

func (options Options) Queries() ([]string, error) {
	return options.GetStrings(URIQuery)
}

func (options Options) SetContentFormat(contentFormat MediaType) Options {
	return options.SetUint32(ContentFormat, uint32(contentFormat))
}

func (options Options) ContentFormat() (MediaType, error) {
	v, err := options.GetUint32(ContentFormat)
	return MediaType(v), err
}

func (options Options) SetObserve(seq uint32) Options {
	return options.SetUint32(Observe, seq)
}

func (options Options) Observe() (uint32, error) {
	return options.GetUint32(Observe)
}

func (options Options) ETag() ([]byte, error) {
	return options.GetBytes(ETag)
}

// AppendTo appends the wire form of all options to buf.
func (options Options) AppendTo(buf []byte) ([]byte, error) {
	var previousID OptionID
	var err error
	for _, o := range options {
		buf, err = o.AppendTo(buf, previousID)
		if err != nil {
			return nil, err
		}
		previousID = o.ID
	}
	return buf, nil
}

// Unmarshal parses options from data up to and including the payload marker and
// returns the number of bytes consumed. Elective options with an invalid length are
// skipped, critical ones fail the parse.
func (options *Options) Unmarshal(data []byte, optionDefs map[OptionID]OptionDef) (int, error) {
	prev := 0
	processed := 0
	for len(data) > 0 {
		if data[0] == 0xff {
			processed++
			if len(data) == 1 {
				return -1, ErrPayloadMarkerWithoutPayload
			}
			break
		}

		delta := int(data[0] >> 4)
		length := int(data[0] & 0x0f)
		if delta == ExtendOptionError || length == ExtendOptionError {
			return -1, ErrOptionUnexpectedExtendMarker
		}
		data = data[1:]
		processed++

		proc, delta, err := parseExtOpt(data, delta)
		if err != nil {
			return -1, err
		}
		processed += proc
		data = data[proc:]
		proc, length, err = parseExtOpt(data, length)
		if err != nil {
			return -1, err
		}
		processed += proc
		data = data[proc:]

		if len(data) < length {
			return -1, ErrOptionTruncated
		}
		oid := prev + delta
		if oid > int(^OptionID(0)) {
			return -1, ErrOptionGapTooLarge
		}
		opt := Option{ID: OptionID(oid), Value: data[:length]}
		switch {
		case opt.valid(optionDefs):
			*options = append(*options, opt)
		case opt.ID.Critical():
			return -1, ErrInvalidValueLength
		}
		processed += length
		data = data[length:]
		prev = oid
	}
	return processed, nil
}
