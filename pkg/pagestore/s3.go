package pagestore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Client is the subset of *s3.Client an S3Store needs; tests supply a
// fake satisfying this instead of talking to AWS.
type S3Client interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Store is a PageStore backed by one S3 object per page, keyed under a
// shared prefix. It trades per-page request latency for the durability
// and horizontal scale object storage gives a compaction-heavy engine
// that can't keep every SortedRun on local disk.
type S3Store struct {
	client S3Client
	bucket string
	prefix string
	ctx    context.Context

	pages atomic.Int64
	mu    sync.Mutex
}

// NewS3Store constructs an S3Store over an already-configured client.
// ctx bounds every Allocate/ReadPage/WritePage/RemoveFile call; callers
// that need per-call deadlines should wrap the client instead.
func NewS3Store(ctx context.Context, client S3Client, bucket, prefix string, existingPages int64) *S3Store {
	s := &S3Store{
		client: client,
		bucket: bucket,
		prefix: prefix,
		ctx:    ctx,
	}
	s.pages.Store(existingPages)
	return s
}

func (s *S3Store) pageKey(page int64) string {
	return fmt.Sprintf("%s/page-%012d", s.prefix, page)
}

// Allocate reserves n contiguous pages by writing zero-filled objects for
// each; S3 has no sparse-file equivalent, so allocation and first write
// are one round trip per page.
func (s *S3Store) Allocate(n int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := s.pages.Load()
	zero := make([]byte, PageSize)
	for i := 0; i < n; i++ {
		page := first + int64(i)
		if _, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.pageKey(page)),
			Body:   bytes.NewReader(zero),
		}); err != nil {
			return 0, fmt.Errorf("pagestore: s3 allocate page %d: %w", page, err)
		}
	}
	s.pages.Add(int64(n))
	return first, nil
}

// WritePage uploads buf (len == PageSize) as the object for page.
func (s *S3Store) WritePage(page int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagestore: s3 write page %d: buffer is %d bytes, want %d", page, len(buf), PageSize)
	}
	if page < 0 || page >= s.pages.Load() {
		return ErrOutOfRange
	}

	_, err := s.client.PutObject(s.ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pageKey(page)),
		Body:   bytes.NewReader(buf),
	})
	if err != nil {
		return fmt.Errorf("pagestore: s3 write page %d: %w", page, err)
	}
	return nil
}

// ReadPage downloads the object for page into buf (len == PageSize).
func (s *S3Store) ReadPage(page int64, buf []byte) error {
	if len(buf) != PageSize {
		return fmt.Errorf("pagestore: s3 read page %d: buffer is %d bytes, want %d", page, len(buf), PageSize)
	}
	if page < 0 || page >= s.pages.Load() {
		return ErrOutOfRange
	}

	out, err := s.client.GetObject(s.ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.pageKey(page)),
	})
	if err != nil {
		return fmt.Errorf("pagestore: s3 read page %d: %w", page, err)
	}
	defer out.Body.Close()

	n, err := io.ReadFull(out.Body, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("pagestore: s3 read page %d: %w", page, err)
	}
	for i := n; i < PageSize; i++ {
		buf[i] = 0
	}
	return nil
}

// PageCount reports the number of pages allocated so far.
func (s *S3Store) PageCount() (int64, error) {
	return s.pages.Load(), nil
}

// RemoveFile deletes every page object under the store's prefix.
func (s *S3Store) RemoveFile() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := s.pages.Load()
	for page := int64(0); page < total; page++ {
		if _, err := s.client.DeleteObject(s.ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(s.pageKey(page)),
		}); err != nil {
			return fmt.Errorf("pagestore: s3 remove page %d: %w", page, err)
		}
	}
	s.pages.Store(0)
	return nil
}

// Close is a no-op: the s3.Client outlives the store and is owned by
// whoever constructed it.
func (s *S3Store) Close() error {
	return nil
}
