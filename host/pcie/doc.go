// Package pcie implements the PCIe card reader variant of the host device.
//
// A PCIe card reader transfers data by bus-master DMA from a scatter-gather
// table. The variant's preprocess hook maps every caller buffer through a
// [Mapper] and attaches the resulting [Table] to the request; the
// postprocess hook unmaps it. The controller reads the table with
// [TableOf] while it executes the transfer.
//
// [Window] is a Mapper that allocates bus addresses from a fixed
// aperture, the way an IOMMU domain does. It performs no real DMA.
package pcie
