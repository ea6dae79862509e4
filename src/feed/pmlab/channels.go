// Copyright (c) 2026 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package pmlab

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var channelNames = [MaxChannels]string{
	"CPU1", "TRIGGER1", "CPU2", "TRIGGER2", "CHAN5", "CHAN6", "CHAN7", "CHAN8",
}

var errEmptyChannel = errors.New("empty channel name")

// ChannelName returns the daemon's name for id.
func ChannelName(id uint32) string {
	if id < MaxChannels {
		return channelNames[id]
	}
	return "CHANNEL(" + strconv.FormatUint(uint64(id), 10) + ")"
}

// ParseChannel accepts a channel name, case insensitive, or a numeric id.
func ParseChannel(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errEmptyChannel
	}
	for id, name := range channelNames {
		if strings.EqualFold(s, name) {
			return uint32(id), nil
		}
	}
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id >= MaxChannels {
		return 0, fmt.Errorf("%w: %q", errUnknownChannelID, s)
	}
	return uint32(id), nil
}

// ParseChannels parses every entry of names.
func ParseChannels(names []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(names))
	for _, name := range names {
		id, err := ParseChannel(name)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
