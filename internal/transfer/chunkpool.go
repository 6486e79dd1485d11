package transfer

import (
	"github.com/sheerbytes/filexfer/internal/bufpool"
)

// chunkBuffers backs every engine that is not given its own pool. Buffers
// are MaxChunkSize so a receiver can accept any conforming frame.
var chunkBuffers = bufpool.New(MaxChunkSize)
