/* SPDX-License-Identifier: BSD-2-Clause */

package mmapdev

// PagePrefix is written at offset 0 of every session page, immediately
// followed (no separator) by the owning device's name. The remainder of
// the page is zero.
const PagePrefix = "My mmap options implement, this is file: "

// userfaultfd ioctl request numbers, precomputed from the asm-generic
// _IOC encoding with type UFFDIO (0xAA). The userfaultfd ABI is stable,
// so the values are spelled out rather than derived through cgo.
const (
	UFFD_API = 0xAA

	UFFDIO_API        = 0xC018AA3F // _IOWR(UFFDIO, 0x3F, struct uffdio_api)
	UFFDIO_REGISTER   = 0xC020AA00 // _IOWR(UFFDIO, 0x00, struct uffdio_register)
	UFFDIO_UNREGISTER = 0x8010AA01 // _IOR(UFFDIO, 0x01, struct uffdio_range)
	UFFDIO_WAKE       = 0x8010AA02 // _IOR(UFFDIO, 0x02, struct uffdio_range)
	UFFDIO_COPY       = 0xC028AA03 // _IOWR(UFFDIO, 0x03, struct uffdio_copy)
	UFFDIO_ZEROPAGE   = 0xC020AA04 // _IOWR(UFFDIO, 0x04, struct uffdio_zeropage)
	UFFDIO_POISON     = 0xC020AA08 // _IOWR(UFFDIO, 0x08, struct uffdio_poison)

	USERFAULTFD_IOC_NEW = 0x0000AA00 // _IO(USERFAULTFD_IOC, 0x00)

	// _UFFDIO_* ioctl indexes, for testing api.Ioctls availability bits.
	_UFFDIO_REGISTER   = 0x00
	_UFFDIO_UNREGISTER = 0x01
	_UFFDIO_WAKE       = 0x02
	_UFFDIO_COPY       = 0x03
	_UFFDIO_ZEROPAGE   = 0x04
	_UFFDIO_POISON     = 0x08
)

// Create a userfaultfd that can handle page faults only in user mode.
const UFFD_USER_MODE_ONLY = 1

// UFFDIO_API features
const (
	UFFD_FEATURE_PAGEFAULT_FLAG_WP  = 1 << iota // 1 << 0
	UFFD_FEATURE_EVENT_FORK                     // 1 << 1
	UFFD_FEATURE_EVENT_REMAP                    // 1 << 2
	UFFD_FEATURE_EVENT_REMOVE                   // 1 << 3
	UFFD_FEATURE_MISSING_HUGETLBFS              // 1 << 4
	UFFD_FEATURE_MISSING_SHMEM                  // 1 << 5
	UFFD_FEATURE_EVENT_UNMAP                    // 1 << 6
	UFFD_FEATURE_SIGBUS                         // 1 << 7
	UFFD_FEATURE_THREAD_ID                      // 1 << 8
	UFFD_FEATURE_MINOR_HUGETLBFS                // 1 << 9
	UFFD_FEATURE_MINOR_SHMEM                    // 1 << 10
	UFFD_FEATURE_EXACT_ADDRESS                  // 1 << 11
	UFFD_FEATURE_WP_HUGETLBFS_SHMEM             // 1 << 12
	UFFD_FEATURE_WP_UNPOPULATED                 // 1 << 13
	UFFD_FEATURE_POISON                         // 1 << 14
	UFFD_FEATURE_WP_ASYNC                       // 1 << 15
	UFFD_FEATURE_MOVE                           // 1 << 16
)

// userfaultfd events
const (
	UFFD_EVENT_PAGEFAULT = 0x12
	UFFD_EVENT_FORK      = 0x13
	UFFD_EVENT_REMAP     = 0x14
	UFFD_EVENT_REMOVE    = 0x15
	UFFD_EVENT_UNMAP     = 0x16
)

// UFFD_EVENT_PAGEFAULT flags
const (
	UFFD_PAGEFAULT_FLAG_WRITE = 1 << iota // 1 << 0
	UFFD_PAGEFAULT_FLAG_WP                // 1 << 1
	UFFD_PAGEFAULT_FLAG_MINOR             // 1 << 2
)

// UFFDIO_COPY(2) ioctl mode
const (
	UFFDIO_COPY_MODE_DONTWAKE = 1 << iota // 1 << 0
	UFFDIO_COPY_MODE_WP                   // 1 << 1
)

// UFFDIO_POISON(2) ioctl mode
const (
	UFFDIO_POISON_MODE_DONTWAKE = 1 << iota // 1 << 0
)

// UFFDIO_REGISTER(2) ioctl mode
const (
	UFFDIO_REGISTER_MODE_MISSING = 1 << iota // 1 << 0
	UFFDIO_REGISTER_MODE_WP                  // 1 << 1
	UFFDIO_REGISTER_MODE_MINOR               // 1 << 2
)

// UFFDIO_ZEROPAGE(2) ioctl mode
const (
	UFFDIO_ZEROPAGE_MODE_DONTWAKE = 1 << iota // 1 << 0
)
