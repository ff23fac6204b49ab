/*
Package lsmtable contains the on-disk table format of a log-structured-merge
key/value store: blocks, block and table builders, and the iterators that
read them back in sorted order, including a k-way merge across tables.

Keys and values are opaque byte strings ordered lexicographically. Tables
are immutable once built and can be shared across concurrent readers.

# Data Structure Documentation

# Table

A table contains a series of blocks, followed by a meta region and a
table footer. All integers are big-endian.

    Table layout:
    +---------+---------+---------+-------------+----------------------+
    | block 1 |   ...   | block n | meta region | meta offset (4 bytes)|
    +---------+---------+---------+-------------+----------------------+

    Meta region:
    +-----------------------+--------+-------+--------+-----------------------------+
    | number of n (4 bytes) | meta 1 |  ...  | meta n | checksum of metas (4 bytes) |
    +-----------------------+--------+-------+--------+-----------------------------+

    Block meta:
    +--------------------------+-----------------+-----------+-----------------+----------+-------------------+--------------------------+
    | block offset (4 bytes)   | first key len   | first key | last key len    | last key | codec (1 byte)    | block checksum (4 bytes) |
    |                          | (2 bytes)       |           | (2 bytes)       |          |                   |                          |
    +--------------------------+-----------------+-----------+-----------------+----------+-------------------+--------------------------+

Checksums are the low 32 bits of the xxhash64 of the covered bytes. With
NoCompression a stored block is exactly its encoding below, otherwise it is
the compressed form of it.

# Block

A block comprises of a series of entries, followed by the offset of each
entry and the number of entries.

    Block layout:
    +---------+-------+---------+---------------------+-------+---------------------+-----------------------------+
    | entry 1 |  ...  | entry n | offset 1 (2 bytes)  |  ...  | offset n (2 bytes)  | number of entries (2 bytes) |
    +---------+-------+---------+---------------------+-------+---------------------+-----------------------------+

# Entry

    +--------------------+-----------+----------------------+-------------+
    | key len (2 bytes)  | key       | value len (2 bytes)  | value       |
    +--------------------+-----------+----------------------+-------------+
*/
package lsmtable
