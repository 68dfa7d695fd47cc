// Package receiver feeds the buffer pool. Each stream runs a Filler that
// acquires a free buffer, lets its Source write one record into it and
// publishes the result. When the pool is exhausted the record is read and
// dropped so the source never stalls.
package receiver
